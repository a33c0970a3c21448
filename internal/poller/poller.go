// Package poller implements fixed-interval polling of background job
// progress. It stops on the first terminal snapshot and ignores snapshots
// belonging to a different session, so a stale job can never complete a
// newer one's wait.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerflow/importd/internal/importer"
)

// ErrNoProgress is returned when polling stops before any snapshot for the
// session was ever observed.
var ErrNoProgress = errors.New("poller: no progress recorded for session")

// Source yields the latest progress snapshot for a session. The bool reports
// whether any snapshot exists yet; absence is not an error, jobs publish
// their first snapshot asynchronously.
type Source interface {
	Get(sessionID string) (importer.Progress, bool)
}

// OnUpdate is invoked for every observed snapshot, terminal one included.
type OnUpdate func(importer.Progress)

// Poller polls a progress source at a fixed interval.
type Poller struct {
	source   Source
	interval time.Duration
	log      zerolog.Logger
}

// New creates a poller. A non-positive interval falls back to 1.2s, the
// cadence review clients use.
func New(source Source, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 1200 * time.Millisecond
	}
	return &Poller{source: source, interval: interval, log: log}
}

// Wait polls until the session reaches a terminal status and returns that
// snapshot. It reads immediately, then on every tick. Context cancellation
// stops the loop and returns the context error.
func (p *Poller) Wait(ctx context.Context, sessionID string, onUpdate OnUpdate) (importer.Progress, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		snap, ok := p.source.Get(sessionID)
		if ok && snap.SessionID == sessionID {
			if onUpdate != nil {
				onUpdate(snap)
			}
			if snap.Status.Terminal() {
				p.log.Debug().
					Str("session_id", sessionID).
					Str("status", string(snap.Status)).
					Msg("polling stopped on terminal status")
				return snap, nil
			}
		}

		select {
		case <-ctx.Done():
			if ok {
				return snap, ctx.Err()
			}
			return importer.Progress{}, errors.Join(ctx.Err(), ErrNoProgress)
		case <-ticker.C:
		}
	}
}
