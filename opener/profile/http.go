package profile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

const (
	DefaultBaseURL   = "https://www.instagram.com/"
	DefaultMaxPosts  = 12
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"
	maxBodyBytes     = 5 * 1024 * 1024
)

// "1,234 Followers, 56 Following, 78 Posts - " prefix of og:description.
var countsPrefixRe = regexp.MustCompile(`(?i)^[\d.,km]+\s+followers?,\s*[\d.,km]+\s+following,\s*[\d.,km]+\s+posts?\s*[-–]\s*`)

type HTTPOption func(*HTTPSource)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithBaseURL points profile page requests at base + handle + "/".
func WithBaseURL(base string) HTTPOption {
	return func(s *HTTPSource) {
		if base != "" {
			s.baseURL = strings.TrimRight(base, "/") + "/"
		}
	}
}

// WithFeedURL sets a template for an RSS/Atom feed of recent posts. The
// template's single %s is replaced with the handle.
func WithFeedURL(template string) HTTPOption {
	return func(s *HTTPSource) {
		s.feedTemplate = template
	}
}

func WithMaxPosts(n int) HTTPOption {
	return func(s *HTTPSource) {
		if n > 0 {
			s.maxPosts = n
		}
	}
}

func WithLogger(l *zap.Logger) HTTPOption {
	return func(s *HTTPSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// HTTPSource reads the public profile page's meta tags and, when configured,
// a feed of recent posts.
type HTTPSource struct {
	client       *http.Client
	baseURL      string
	feedTemplate string
	maxPosts     int
	parser       *gofeed.Parser
	logger       *zap.Logger
}

func NewHTTPSource(opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		client:   &http.Client{Timeout: 20 * time.Second},
		baseURL:  DefaultBaseURL,
		maxPosts: DefaultMaxPosts,
		parser:   gofeed.NewParser(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) Fetch(ctx context.Context, handleOrURL string) (*opener.Profile, error) {
	handle, err := ParseHandle(handleOrURL)
	if err != nil {
		return nil, err
	}

	body, err := s.get(ctx, s.baseURL+handle+"/")
	if err != nil {
		return nil, fmt.Errorf("HTTPSource.Fetch: page: %w", err)
	}
	p, err := parsePage(handle, body)
	if err != nil {
		return nil, fmt.Errorf("HTTPSource.Fetch: parse page: %w", err)
	}

	if s.feedTemplate != "" {
		posts, err := s.fetchPosts(ctx, fmt.Sprintf(s.feedTemplate, handle))
		switch {
		case err == nil:
			p.Posts = posts
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			s.logger.Warn("recent posts unavailable", zap.String("handle", handle), zap.Error(err))
		}
	}

	Enrich(p)
	return p, nil
}

func (s *HTTPSource) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: retry-after=%q", ErrRateLimited, resp.Header.Get("Retry-After"))
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func parsePage(handle string, body []byte) (*opener.Profile, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	meta := func(selectors ...string) string {
		for _, sel := range selectors {
			if v, ok := doc.Find(sel).First().Attr("content"); ok {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
		return ""
	}

	bio := meta(`meta[property="og:description"]`, `meta[name="description"]`)
	bio = strings.TrimSpace(countsPrefixRe.ReplaceAllString(bio, ""))
	// "See Instagram photos and videos from Name (@handle)" carries no bio.
	if strings.HasPrefix(strings.ToLower(bio), "see instagram photos and videos from") {
		bio = ""
	}

	return &opener.Profile{Username: handle, Bio: bio}, nil
}

func (s *HTTPSource) fetchPosts(ctx context.Context, feedURL string) ([]opener.ProfilePost, error) {
	body, err := s.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	feed, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var posts []opener.ProfilePost
	for _, item := range feed.Items {
		if len(posts) == s.maxPosts {
			break
		}
		post := opener.ProfilePost{
			ImageURL: itemImage(item),
			Caption:  itemCaption(item),
		}
		if item.PublishedParsed != nil {
			post.Timestamp = *item.PublishedParsed
		}
		if post.Caption == "" && post.ImageURL == "" {
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return strings.TrimSpace(item.Image.URL)
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return strings.TrimSpace(enc.URL)
		}
	}
	return ""
}

func itemCaption(item *gofeed.Item) string {
	text := item.Description
	if strings.TrimSpace(text) == "" {
		text = item.Title
	}
	if strings.ContainsAny(text, "<>") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}
