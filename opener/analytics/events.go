// Package analytics defines the typed events emitted by the opener core and
// the sinks that receive them.
package analytics

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindPhotoAnalyzed     Kind = "photo_analyzed"
	KindOpenersGenerated  Kind = "openers_generated"
	KindOpenerRated       Kind = "opener_rated"
	KindCandidateRejected Kind = "candidate_rejected"
)

var ErrInvalidEvent = errors.New("analytics: invalid event")

// Event is one analytics record. Each kind has its own concrete type and a
// constructor that validates it.
type Event interface {
	Kind() Kind
	OccurredAt() time.Time
}

type base struct {
	At time.Time `json:"at"`
}

func (b base) OccurredAt() time.Time { return b.At }

type PhotoAnalyzed struct {
	base
	ImageID      string `json:"image_id"`
	ElementCount int    `json:"element_count"`
	Setting      string `json:"setting,omitempty"`
}

func (PhotoAnalyzed) Kind() Kind { return KindPhotoAnalyzed }

func NewPhotoAnalyzed(imageID string, elementCount int, setting string) (PhotoAnalyzed, error) {
	if imageID == "" {
		return PhotoAnalyzed{}, fmt.Errorf("%w: photo_analyzed: empty image id", ErrInvalidEvent)
	}
	if elementCount < 0 {
		return PhotoAnalyzed{}, fmt.Errorf("%w: photo_analyzed: element count %d", ErrInvalidEvent, elementCount)
	}
	return PhotoAnalyzed{
		base:         base{At: time.Now()},
		ImageID:      imageID,
		ElementCount: elementCount,
		Setting:      setting,
	}, nil
}

type OpenersGenerated struct {
	base
	AnalysisID    string `json:"analysis_id"`
	Style         string `json:"style,omitempty"`
	Requested     int    `json:"requested"`
	Accepted      int    `json:"accepted"`
	BackfillCalls int    `json:"backfill_calls"`
	Partial       bool   `json:"partial"`
}

func (OpenersGenerated) Kind() Kind { return KindOpenersGenerated }

func NewOpenersGenerated(analysisID, style string, requested, accepted, backfillCalls int) (OpenersGenerated, error) {
	if analysisID == "" {
		return OpenersGenerated{}, fmt.Errorf("%w: openers_generated: empty analysis id", ErrInvalidEvent)
	}
	if requested <= 0 || accepted < 0 || accepted > requested || backfillCalls < 0 {
		return OpenersGenerated{}, fmt.Errorf("%w: openers_generated: requested=%d accepted=%d backfill=%d",
			ErrInvalidEvent, requested, accepted, backfillCalls)
	}
	return OpenersGenerated{
		base:          base{At: time.Now()},
		AnalysisID:    analysisID,
		Style:         style,
		Requested:     requested,
		Accepted:      accepted,
		BackfillCalls: backfillCalls,
		Partial:       accepted < requested,
	}, nil
}

type OpenerRated struct {
	base
	OpenerID string `json:"opener_id"`
	Rating   int    `json:"rating"`
}

func (OpenerRated) Kind() Kind { return KindOpenerRated }

func NewOpenerRated(openerID string, rating int) (OpenerRated, error) {
	if openerID == "" {
		return OpenerRated{}, fmt.Errorf("%w: opener_rated: empty opener id", ErrInvalidEvent)
	}
	if rating < 1 || rating > 5 {
		return OpenerRated{}, fmt.Errorf("%w: opener_rated: rating %d out of range", ErrInvalidEvent, rating)
	}
	return OpenerRated{base: base{At: time.Now()}, OpenerID: openerID, Rating: rating}, nil
}

// CandidateRejected records a generated line dropped by the safety filter.
// The rejected text is not carried.
type CandidateRejected struct {
	base
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Backfill   bool    `json:"backfill"`
}

func (CandidateRejected) Kind() Kind { return KindCandidateRejected }

func NewCandidateRejected(category string, confidence float64, backfill bool) (CandidateRejected, error) {
	if category == "" {
		return CandidateRejected{}, fmt.Errorf("%w: candidate_rejected: empty category", ErrInvalidEvent)
	}
	if confidence < 0 || confidence > 1 {
		return CandidateRejected{}, fmt.Errorf("%w: candidate_rejected: confidence %v", ErrInvalidEvent, confidence)
	}
	return CandidateRejected{
		base:       base{At: time.Now()},
		Category:   category,
		Confidence: confidence,
		Backfill:   backfill,
	}, nil
}
