package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/flirtframe/opener"
)

// Snapshotter is satisfied by *opener.SessionMemory.
type Snapshotter interface {
	Snapshot() opener.SessionSnapshot
	Revision() uint64
}

// DefaultAutosaveSchedule saves once a minute.
const DefaultAutosaveSchedule = "@every 1m"

const autosaveTimeout = 30 * time.Second

// Autosaver periodically writes a session snapshot to a Store. Stop performs
// a final save so nothing recorded before shutdown is lost.
type Autosaver struct {
	store  Store
	source Snapshotter
	id     string
	logger *zap.Logger

	cron    *cron.Cron
	entryID cron.EntryID

	mu        sync.Mutex
	lastRev   uint64
	saved     bool
	lastSaved time.Time
	started   bool
}

// NewAutosaver schedules saves of source under id. schedule accepts standard
// cron expressions and descriptors such as "@every 30s".
func NewAutosaver(st Store, id string, source Snapshotter, schedule string, logger *zap.Logger) (*Autosaver, error) {
	if st == nil || source == nil {
		return nil, errors.New("NewAutosaver: store and source are required")
	}
	if err := validateID(id); err != nil {
		return nil, fmt.Errorf("NewAutosaver: %w", err)
	}
	if schedule == "" {
		schedule = DefaultAutosaveSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Autosaver{
		store:   st,
		source:  source,
		id:      id,
		logger:  logger.Named("autosave").With(zap.String("session_id", id)),
		cron:    cron.New(),
	}

	entryID, err := a.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
		defer cancel()

		start := time.Now()
		saved, err := a.save(ctx, false)
		switch {
		case err != nil:
			a.logger.Warn("autosave failed", zap.Error(err))
		case saved:
			a.logger.Debug("autosave completed", zap.Duration("elapsed", time.Since(start)))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("NewAutosaver: schedule %q: %w", schedule, err)
	}
	a.entryID = entryID
	return a, nil
}

// Start begins running scheduled saves.
func (a *Autosaver) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return
	}
	a.started = true
	a.logger.Info("autosave started")
	a.cron.Start()
}

// Stop halts the schedule, waits for a running save, then saves once more.
func (a *Autosaver) Stop(ctx context.Context) error {
	a.mu.Lock()
	started := a.started
	a.started = false
	a.mu.Unlock()

	if started {
		select {
		case <-a.cron.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	_, err := a.save(ctx, true)
	if err != nil {
		return fmt.Errorf("Autosaver.Stop: %w", err)
	}
	a.logger.Info("autosave stopped")
	return nil
}

// SaveNow writes the current snapshot regardless of whether it changed.
func (a *Autosaver) SaveNow(ctx context.Context) error {
	_, err := a.save(ctx, true)
	return err
}

// LastSaved reports when the last successful save happened.
func (a *Autosaver) LastSaved() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSaved
}

// save skips sessions whose revision matches the last save unless force is
// set.
func (a *Autosaver) save(ctx context.Context, force bool) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rev := a.source.Revision()
	if !force && a.saved && rev == a.lastRev {
		return false, nil
	}

	snap := a.source.Snapshot()
	if err := a.store.Save(ctx, a.id, snap); err != nil {
		return false, err
	}
	a.lastRev = rev
	a.saved = true
	a.lastSaved = snap.SavedAt
	return true, nil
}
