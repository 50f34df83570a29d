package analyzer

import (
	"image"
	"sort"

	"golang.org/x/image/draw"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

const (
	paletteSampleSize = 32
	paletteColors     = 3
	paletteConfidence = 0.85
)

type rgb struct{ r, g, b float64 }

// PaletteElement reduces img to its dominant colors and describes them as an
// aesthetic element. It reports false for images too small to sample.
func PaletteElement(img image.Image) (opener.DetectedElement, bool) {
	if img == nil || img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return opener.DetectedElement{}, false
	}

	small := image.NewRGBA(image.Rect(0, 0, paletteSampleSize, paletteSampleSize))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	// 4 levels per channel.
	type bucket struct {
		sum   rgb
		count int
	}
	buckets := make(map[int]*bucket)
	for y := 0; y < paletteSampleSize; y++ {
		for x := 0; x < paletteSampleSize; x++ {
			c := small.RGBAAt(x, y)
			key := int(c.R>>6)<<4 | int(c.G>>6)<<2 | int(c.B>>6)
			b := buckets[key]
			if b == nil {
				b = &bucket{}
				buckets[key] = b
			}
			b.sum.r += float64(c.R) / 255
			b.sum.g += float64(c.G) / 255
			b.sum.b += float64(c.B) / 255
			b.count++
		}
	}

	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if buckets[keys[i]].count != buckets[keys[j]].count {
			return buckets[keys[i]].count > buckets[keys[j]].count
		}
		return keys[i] < keys[j]
	})

	var dominant []rgb
	for _, k := range keys {
		if len(dominant) == paletteColors {
			break
		}
		b := buckets[k]
		n := float64(b.count)
		dominant = append(dominant, rgb{b.sum.r / n, b.sum.g / n, b.sum.b / n})
	}

	var details []string
	seen := map[string]bool{}
	for _, c := range dominant {
		d := describeColor(c)
		if !seen[d] {
			seen[d] = true
			details = append(details, d)
		}
	}

	return opener.DetectedElement{
		Type:       opener.ElementAesthetic,
		Label:      "color palette",
		Details:    details,
		Confidence: paletteConfidence,
		Attributes: map[string]string{"mood": paletteMood(dominant)},
	}, true
}

func describeColor(c rgb) string {
	switch {
	case c.r > 0.7 && c.g < 0.3:
		return "warm red tones"
	case c.b > 0.7 && c.r < 0.3:
		return "cool blue hues"
	case c.g > 0.6:
		return "natural greens"
	default:
		return "neutral tones"
	}
}

func paletteMood(colors []rgb) string {
	var sat float64
	for _, c := range colors {
		hi := max(c.r, c.g, c.b)
		lo := min(c.r, c.g, c.b)
		sat += hi - lo
	}
	if len(colors) > 0 && sat/float64(len(colors)) > 0.4 {
		return "vibrant and energetic"
	}
	return "calm and understated"
}
