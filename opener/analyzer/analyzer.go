// Package analyzer turns photos into opener.AnalysisRecord values.
package analyzer

import (
	"context"
	"errors"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

var (
	ErrInvalidImage   = errors.New("analyzer: invalid image")
	ErrAnalysisFailed = errors.New("analyzer: analysis failed")
)

type Analyzer interface {
	Analyze(ctx context.Context, image []byte) (opener.AnalysisRecord, error)
}
