// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/tomtom215/trackgraph/internal/config"
	"github.com/tomtom215/trackgraph/internal/logging"
	"github.com/tomtom215/trackgraph/internal/metrics"
	"github.com/tomtom215/trackgraph/internal/models"
)

var errStalePrewarm = errors.New("prewarm job superseded by a newer dataset")

// PrewarmJob asks for the companion views of one bubbles request.
type PrewarmJob struct {
	Version int64
	Filter  models.FilterKey
	GroupBy models.GroupBy
}

// PrewarmFunc executes one job.
type PrewarmFunc func(ctx context.Context, job PrewarmJob) error

// Prewarmer is a bounded worker pool for background cache warming.
// Duplicate jobs already queued or running are coalesced and a full queue
// drops new jobs. It implements suture.Service.
type Prewarmer struct {
	workers int
	timeout time.Duration
	queue   chan PrewarmJob

	mu      sync.Mutex
	pending map[PrewarmJob]struct{}
	run     PrewarmFunc
}

// NewPrewarmer creates a pool sized by cfg. The job function is attached
// with Bind once the service exists.
func NewPrewarmer(cfg config.PrewarmConfig) *Prewarmer {
	workers := max(cfg.Workers, 1)
	queueSize := max(cfg.QueueSize, 1)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Prewarmer{
		workers: workers,
		timeout: timeout,
		queue:   make(chan PrewarmJob, queueSize),
		pending: make(map[PrewarmJob]struct{}),
	}
}

// Bind sets the function executed for each job.
func (p *Prewarmer) Bind(run PrewarmFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.run = run
}

// BindService makes the pool warm s's caches.
func (p *Prewarmer) BindService(s *Service, historicalLimit int) {
	p.Bind(func(ctx context.Context, job PrewarmJob) error {
		return s.runPrewarm(ctx, job, historicalLimit)
	})
}

// Offer enqueues job without blocking. It reports whether the job was
// accepted; coalesced duplicates count as accepted. A nil pool accepts
// nothing.
func (p *Prewarmer) Offer(job PrewarmJob) bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.pending[job]; ok {
		metrics.PrewarmJobs.WithLabelValues("coalesced").Inc()
		return true
	}
	select {
	case p.queue <- job:
		p.pending[job] = struct{}{}
		metrics.PrewarmJobs.WithLabelValues("queued").Inc()
		metrics.PrewarmQueueDepth.Set(float64(len(p.queue)))
		return true
	default:
		metrics.PrewarmJobs.WithLabelValues("dropped").Inc()
		logging.Debug().Int64("version", job.Version).Str("group_by", string(job.GroupBy)).Msg("Prewarm queue full, dropping job")
		return false
	}
}

// Pending returns the number of queued or running jobs.
func (p *Prewarmer) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Serve runs the workers until ctx is canceled.
func (p *Prewarmer) Serve(ctx context.Context) error {
	logging.Info().Int("workers", p.workers).Int("queue_size", cap(p.queue)).Msg("Prewarm workers started")

	var wg sync.WaitGroup
	for range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx)
		}()
	}
	wg.Wait()

	logging.Info().Msg("Prewarm workers stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (p *Prewarmer) String() string {
	return "prewarm-workers"
}

func (p *Prewarmer) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.queue:
			metrics.PrewarmQueueDepth.Set(float64(len(p.queue)))
			p.execute(ctx, job)
			p.mu.Lock()
			delete(p.pending, job)
			p.mu.Unlock()
		}
	}
}

func (p *Prewarmer) execute(ctx context.Context, job PrewarmJob) {
	p.mu.Lock()
	run := p.run
	p.mu.Unlock()
	if run == nil {
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("prewarm panic: %v", r)
				logging.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("Prewarm job panicked")
			}
		}()
		return run(jobCtx, job)
	}()

	switch {
	case err == nil:
		metrics.PrewarmJobs.WithLabelValues("completed").Inc()
	case errors.Is(err, errStalePrewarm):
		metrics.PrewarmJobs.WithLabelValues("stale").Inc()
	default:
		metrics.PrewarmJobs.WithLabelValues("failed").Inc()
		logging.Warn().Err(err).Int64("version", job.Version).Str("group_by", string(job.GroupBy)).Msg("Prewarm job failed")
	}
}
