package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/flirtframe/opener"
	"github.com/theimaginaryfoundation/flirtframe/opener/analytics"
	"github.com/theimaginaryfoundation/flirtframe/opener/fileutils"
	"github.com/theimaginaryfoundation/flirtframe/opener/provider"
)

const visionInstructions = `You analyze a single photo so that someone can start a spoken conversation about it.
List the concrete things you can see: people (approximate age and gender only if obvious), objects with
distinguishing details, visible text, the scene, activities, clothing, emotions, aesthetic qualities
(lighting, decor, composition) and cultural references (art, symbols, brands).
Prefer specific, unusual details over generic ones. Confidence is between 0 and 1.
Use age 0 and an empty gender when unknown. Describe the scene in two or three sentences.`

const logReplyChars = 200

type visionElement struct {
	Type       string   `json:"type" jsonschema:"enum=person,enum=object,enum=text,enum=scene,enum=activity,enum=clothing,enum=emotion,enum=aesthetic,enum=cultural"`
	Label      string   `json:"label"`
	Details    []string `json:"details"`
	Confidence float64  `json:"confidence"`
	Age        int      `json:"age"`
	Gender     string   `json:"gender"`
}

type visionScene struct {
	Setting         string   `json:"setting"`
	TimeOfDay       string   `json:"time_of_day"`
	Formality       string   `json:"formality"`
	Mood            string   `json:"mood"`
	Atmosphere      string   `json:"atmosphere"`
	PeopleCount     int      `json:"people_count"`
	UniqueDetails   []string `json:"unique_details"`
	NotableFeatures []string `json:"notable_features"`
}

type visionResponse struct {
	Elements    []visionElement `json:"elements"`
	Scene       visionScene     `json:"scene"`
	Description string          `json:"description"`
}

// StructuredGenerator is satisfied by *provider.OpenAIGenerator.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, req provider.StructuredRequest) (string, error)
}

type VisionOption func(*VisionAnalyzer)

func WithLogger(l *zap.Logger) VisionOption {
	return func(a *VisionAnalyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithSink(s analytics.Sink) VisionOption {
	return func(a *VisionAnalyzer) {
		if s != nil {
			a.sink = s
		}
	}
}

// WithPalette toggles the locally computed color-palette element.
func WithPalette(on bool) VisionOption {
	return func(a *VisionAnalyzer) {
		a.palette = on
	}
}

// VisionAnalyzer asks a multimodal model for a structured description of the
// photo and maps it onto an AnalysisRecord.
type VisionAnalyzer struct {
	gen       StructuredGenerator
	schema    map[string]any
	logger    *zap.Logger
	sink      analytics.Sink
	palette   bool
	maxTokens int64
	newID     func() string
	now       func() time.Time
}

func NewVisionAnalyzer(gen StructuredGenerator, opts ...VisionOption) (*VisionAnalyzer, error) {
	if gen == nil {
		return nil, errors.New("NewVisionAnalyzer: generator is nil")
	}
	schema, err := provider.GenerateSchema[visionResponse]()
	if err != nil {
		return nil, fmt.Errorf("NewVisionAnalyzer: %w", err)
	}
	a := &VisionAnalyzer{
		gen:       gen,
		schema:    schema,
		logger:    zap.NewNop(),
		sink:      analytics.NopSink{},
		palette:   true,
		maxTokens: 2000,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *VisionAnalyzer) Analyze(ctx context.Context, data []byte) (opener.AnalysisRecord, error) {
	info, err := ValidateImage(data)
	if err != nil {
		return opener.AnalysisRecord{}, err
	}

	content := responses.ResponseInputMessageContentListParam{
		{OfInputText: &responses.ResponseInputTextParam{Text: "Analyze this photo."}},
		{OfInputImage: &responses.ResponseInputImageParam{
			Detail:   responses.ResponseInputImageDetailAuto,
			ImageURL: openai.String(DataURL(info, data)),
		}},
	}
	raw, err := a.gen.GenerateStructured(ctx, provider.StructuredRequest{
		Instructions: visionInstructions,
		Input: []responses.ResponseInputItemUnionParam{
			responses.ResponseInputItemParamOfMessage(content, responses.EasyInputMessageRoleUser),
		},
		SchemaName:  "PhotoAnalysis",
		Description: "Structured photo analysis",
		Schema:      a.schema,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return opener.AnalysisRecord{}, ctxErr
		}
		return opener.AnalysisRecord{}, fmt.Errorf("%w: vision call: %v", ErrAnalysisFailed, err)
	}

	var resp visionResponse
	if err := fileutils.DecodeModelJSON(raw, &resp); err != nil {
		a.logger.Warn("unparseable vision reply", zap.String("reply", fileutils.Truncate(raw, logReplyChars)))
		return opener.AnalysisRecord{}, fmt.Errorf("%w: decode: %v", ErrAnalysisFailed, err)
	}

	rec := a.toRecord(resp)
	if a.palette {
		if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
			if el, ok := PaletteElement(img); ok {
				rec.Elements = append(rec.Elements, el)
			}
		} else {
			a.logger.Debug("palette skipped", zap.Error(err))
		}
	}
	if len(rec.Elements) == 0 {
		return opener.AnalysisRecord{}, fmt.Errorf("%w: no elements detected", ErrAnalysisFailed)
	}

	a.logger.Debug("photo analyzed",
		zap.String("image_id", rec.ImageID),
		zap.String("format", info.Format),
		zap.Int("elements", len(rec.Elements)))
	if ev, err := analytics.NewPhotoAnalyzed(rec.ImageID, len(rec.Elements), rec.Context.Setting); err == nil {
		a.sink.Record(ctx, ev)
	}
	return rec, nil
}

func (a *VisionAnalyzer) toRecord(resp visionResponse) opener.AnalysisRecord {
	rec := opener.AnalysisRecord{
		ImageID:     a.newID(),
		Description: strings.TrimSpace(resp.Description),
		Timestamp:   a.now(),
	}
	for _, ve := range resp.Elements {
		if el, ok := toElement(ve); ok {
			rec.Elements = append(rec.Elements, el)
		} else {
			a.logger.Debug("dropped element", zap.String("type", ve.Type), zap.String("label", ve.Label))
		}
	}

	s := resp.Scene
	rec.Context = FillContext(opener.SceneContext{
		Setting:         strings.TrimSpace(s.Setting),
		TimeOfDay:       strings.TrimSpace(s.TimeOfDay),
		Formality:       strings.TrimSpace(s.Formality),
		Mood:            strings.TrimSpace(s.Mood),
		Atmosphere:      strings.TrimSpace(s.Atmosphere),
		PeopleCount:     max(s.PeopleCount, 0),
		UniqueDetails:   trimAll(s.UniqueDetails),
		NotableFeatures: trimAll(s.NotableFeatures),
	}, rec.Elements)
	return rec
}

func toElement(ve visionElement) (opener.DetectedElement, bool) {
	t := opener.ElementType(strings.ToLower(strings.TrimSpace(ve.Type)))
	if !t.Valid() {
		return opener.DetectedElement{}, false
	}
	label := strings.TrimSpace(ve.Label)
	if label == "" && t != opener.ElementPerson {
		return opener.DetectedElement{}, false
	}

	el := opener.DetectedElement{
		Type:       t,
		Label:      label,
		Details:    trimAll(ve.Details),
		Confidence: min(max(ve.Confidence, 0), 1),
	}
	if t == opener.ElementPerson {
		attrs := map[string]string{}
		if ve.Age > 0 {
			attrs["age"] = strconv.Itoa(ve.Age)
		}
		if g := strings.ToLower(strings.TrimSpace(ve.Gender)); g != "" {
			attrs["gender"] = g
		}
		if len(attrs) > 0 {
			el.Attributes = attrs
		}
	}
	return el, true
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
