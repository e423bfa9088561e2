// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package poller watches one document until the backend reports a terminal
// status. A Watch call owns a single timer and at most one fetch in flight;
// a tick that finds the previous fetch unresolved is skipped. Fetches are
// tagged with a sequence number so that a slow response never overwrites a
// newer one.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/idp-client/internal/metrics"
	"github.com/pdiddy/idp-client/pkg/types"
)

// Defaults applied to zero PollConfig fields.
const (
	DefaultInterval     = 3 * time.Second
	DefaultBackoffAfter = 2
	DefaultMaxBackoff   = 30 * time.Second
	DefaultMaxFailures  = 5
)

// ErrGaveUp is returned when MaxFailures consecutive fetches fail.
var ErrGaveUp = errors.New("gave up polling after repeated failures")

// Fetcher reads a document's current state. *api.Client satisfies it.
type Fetcher interface {
	GetDocument(ctx context.Context, id int64) (types.Document, error)
}

// Update is delivered to the Watch callback for every applied response.
type Update struct {
	// Seq is the sequence number of the fetch that produced this update.
	Seq uint64

	// Document is the latest successfully observed state. On a failed
	// fetch it still holds the previous state.
	Document types.Document

	// Err is set when the fetch failed.
	Err error

	// Failures counts consecutive failed fetches, including this one.
	Failures int

	// Changed reports whether status or classification differs from the
	// previously applied document. The first successful fetch is a change.
	Changed bool
}

// Poller issues periodic status fetches.
type Poller struct {
	fetch   Fetcher
	cfg     types.PollConfig
	metrics *metrics.Metrics
}

// New returns a Poller. Zero fields in cfg take the package defaults; a
// negative MaxFailures never gives up.
func New(f Fetcher, cfg types.PollConfig, m *metrics.Metrics) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BackoffAfter <= 0 {
		cfg.BackoffAfter = DefaultBackoffAfter
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.MaxBackoff < cfg.Interval {
		cfg.MaxBackoff = cfg.Interval
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	return &Poller{fetch: f, cfg: cfg, metrics: m}
}

type result struct {
	seq uint64
	doc types.Document
	err error
}

// Watch fetches document id immediately and then on the configured
// interval until its status is terminal, ctx is done, or the poller gives
// up. onChange may be nil; it runs on the calling goroutine and is never
// invoked after Watch returns.
//
// Watch returns the last observed document. The error is nil on a terminal
// status, ctx.Err() on cancellation, or wraps ErrGaveUp.
func (p *Poller) Watch(ctx context.Context, id int64, onChange func(Update)) (types.Document, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan result)
	timer := time.NewTimer(0)
	defer timer.Stop()

	var (
		last     types.Document
		observed bool
		issued   uint64
		applied  uint64
		failures int
		inflight bool
	)

	for {
		select {
		case <-ctx.Done():
			p.metrics.PollEvent("cancelled")
			return last, ctx.Err()

		case <-timer.C:
			if err := ctx.Err(); err != nil {
				p.metrics.PollEvent("cancelled")
				return last, err
			}
			timer.Reset(p.delay(failures))
			if inflight {
				p.metrics.PollEvent("skipped")
				slog.Debug("previous status fetch unresolved, skipping tick", "document_id", id, "seq", issued)
				continue
			}
			issued++
			inflight = true
			p.metrics.PollEvent("fetch")
			go p.fetchOnce(ctx, id, issued, results)

		case r := <-results:
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			if r.seq == issued {
				inflight = false
			}
			if r.seq <= applied {
				p.metrics.PollEvent("stale")
				slog.Debug("discarding stale status", "document_id", id, "seq", r.seq, "applied", applied)
				continue
			}
			applied = r.seq

			if r.err != nil {
				failures++
				p.metrics.PollEvent("failure")
				slog.Warn("status fetch failed", "document_id", id, "failures", failures, "error", r.err)
				notify(onChange, Update{Seq: r.seq, Document: last, Err: r.err, Failures: failures})
				if p.cfg.MaxFailures > 0 && failures >= p.cfg.MaxFailures {
					p.metrics.PollEvent("gave_up")
					return last, fmt.Errorf("document %d: %w: %w", id, ErrGaveUp, r.err)
				}
				continue
			}

			changed := !observed || r.doc.Status != last.Status || r.doc.Classification != last.Classification
			last, observed, failures = r.doc, true, 0
			notify(onChange, Update{Seq: r.seq, Document: last, Changed: changed})

			if last.Status.IsTerminal() {
				p.metrics.PollEvent("terminal")
				slog.Debug("document reached terminal status", "document_id", id, "status", last.Status)
				return last, nil
			}
		}
	}
}

func (p *Poller) fetchOnce(ctx context.Context, id int64, seq uint64, out chan<- result) {
	doc, err := p.fetch.GetDocument(ctx, id)
	select {
	case out <- result{seq: seq, doc: doc, err: err}:
	case <-ctx.Done():
	}
}

// delay is the fixed interval until BackoffAfter consecutive failures, then
// doubles per further failure up to MaxBackoff.
func (p *Poller) delay(failures int) time.Duration {
	if failures < p.cfg.BackoffAfter {
		return p.cfg.Interval
	}
	d := p.cfg.Interval
	for i := p.cfg.BackoffAfter; i <= failures; i++ {
		d *= 2
		if d >= p.cfg.MaxBackoff {
			return p.cfg.MaxBackoff
		}
	}
	return d
}

func notify(fn func(Update), u Update) {
	if fn != nil {
		fn(u)
	}
}
