package profile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/theimaginaryfoundation/flirtframe/opener"
	"github.com/theimaginaryfoundation/flirtframe/opener/fileutils"
)

// FileSource serves profiles saved as <dir>/<handle>.json.
type FileSource struct {
	Dir string
}

func (s FileSource) Fetch(ctx context.Context, handleOrURL string) (*opener.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handle, err := ParseHandle(handleOrURL)
	if err != nil {
		return nil, err
	}

	var p opener.Profile
	path := filepath.Join(s.Dir, handle+".json")
	if err := fileutils.ReadJSONFile(path, &p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, handle)
		}
		return nil, fmt.Errorf("FileSource.Fetch: %w", err)
	}
	if p.Username == "" {
		p.Username = handle
	}
	Enrich(&p)
	return &p, nil
}
