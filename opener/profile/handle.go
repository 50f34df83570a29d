// Package profile fetches public profile data and derives the interests and
// personality used for matching.
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

var (
	ErrInvalidHandle = errors.New("profile: invalid handle")
	ErrInvalidURL    = errors.New("profile: invalid profile url")
	ErrRateLimited   = errors.New("profile: rate limited")
	ErrNotFound      = errors.New("profile: not found")
)

// Source loads a profile by handle ("@name", "name") or profile URL.
type Source interface {
	Fetch(ctx context.Context, handleOrURL string) (*opener.Profile, error)
}

var (
	handleRe     = regexp.MustCompile(`^[A-Za-z0-9._]{1,30}$`)
	profileHosts = map[string]bool{
		"instagram.com":     true,
		"www.instagram.com": true,
		"m.instagram.com":   true,
	}
	reservedPaths = map[string]bool{
		"p": true, "reel": true, "reels": true, "explore": true, "stories": true, "accounts": true,
	}
)

// ParseHandle normalizes a handle or profile URL to a bare lower-case handle.
func ParseHandle(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidHandle)
	}

	if looksLikeURL(s) {
		raw := s
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
		}
		if !profileHosts[strings.ToLower(u.Hostname())] {
			return "", fmt.Errorf("%w: host %q", ErrInvalidURL, u.Hostname())
		}
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segs) == 0 || segs[0] == "" || reservedPaths[strings.ToLower(segs[0])] {
			return "", fmt.Errorf("%w: no profile in path %q", ErrInvalidURL, u.Path)
		}
		s = segs[0]
	}

	handle := strings.ToLower(strings.TrimPrefix(s, "@"))
	if !handleRe.MatchString(handle) ||
		strings.HasPrefix(handle, ".") || strings.HasSuffix(handle, ".") ||
		strings.Contains(handle, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, s)
	}
	return handle, nil
}

func looksLikeURL(s string) bool {
	if strings.Contains(s, "://") {
		return true
	}
	lower := strings.ToLower(s)
	for host := range profileHosts {
		if strings.HasPrefix(lower, host+"/") || lower == host {
			return true
		}
	}
	return false
}
