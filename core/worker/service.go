// Package worker hosts the pipeline behind an asynchronous
// request/response channel so callers never block on large datasets.
// Each submission is computed by a pool worker and delivered once on a
// buffered channel; when a caller races two submissions, discarding the
// stale result is the caller's job (last write wins at the call site).
// Nothing is retained between computations.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/google/uuid"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"

	"github.com/gridworks/tabeng/core"
	"github.com/gridworks/tabeng/core/cache"
	"github.com/gridworks/tabeng/core/graphql"
	"github.com/gridworks/tabeng/core/pipeline"
)

// ErrClosed is returned for submissions after Close.
var ErrClosed = fmt.Errorf("worker: service closed")

const defaultQueueDepth = 16

// Outcome is the single delivery of one submitted computation.
type Outcome struct {
	ID     uuid.UUID
	Result *pipeline.Result
	Err    error
}

type request struct {
	ctx   context.Context
	id    uuid.UUID
	input pipeline.Input
	out   chan Outcome
}

// Options configures a Service.
type Options struct {
	// Workers is the pool size; values below 1 become 1.
	Workers int
	// ParseCacheTTL bounds the extractor's parsed-query memo. Zero
	// keeps parsed queries indefinitely.
	ParseCacheTTL time.Duration
}

// Service owns a fixed worker pool, the pipeline engine, the response
// extractor, and a typed lifecycle event bus.
type Service struct {
	logger    *zap.Logger
	engine    *pipeline.Engine
	extractor *graphql.Extractor
	bus       *events.TypedEventBus[core.EngineEvent]

	requests chan request
	done     chan struct{}
	wg       sync.WaitGroup
	closing  sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewService starts the worker pool. A nil logger falls back to a
// no-op logger.
func NewService(opts Options, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	bus, err := events.NewTypedEventBus[core.EngineEvent](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("create event bus: %w", err)
	}

	s := &Service{
		logger:    logger,
		engine:    pipeline.NewEngine(logger),
		extractor: graphql.NewExtractor(logger, cache.New[string, *ast.QueryDocument](opts.ParseCacheTTL)),
		bus:       bus,
		requests:  make(chan request, defaultQueueDepth),
		done:      make(chan struct{}),
	}

	s.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go s.run()
	}
	logger.Debug("compute service started", zap.Int("workers", workers))
	return s, nil
}

// Events exposes the lifecycle bus. Subscribers receive compute and
// extract start/success/failed events keyed by core.EngineEventType.
func (s *Service) Events() *events.TypedEventBus[core.EngineEvent] {
	return s.bus
}

// Submit queues one pipeline computation and returns its future: a
// buffered channel that delivers exactly one Outcome. A context that
// ends before the request is queued resolves immediately with the
// context's error.
func (s *Service) Submit(ctx context.Context, input pipeline.Input) <-chan Outcome {
	out := make(chan Outcome, 1)
	req := request{ctx: ctx, id: uuid.New(), input: input, out: out}

	// The read lock is held across the enqueue so Close cannot drain
	// the queue between the closed check and the send.
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		out <- Outcome{ID: req.id, Err: ErrClosed}
		return out
	}

	select {
	case <-ctx.Done():
		out <- Outcome{ID: req.id, Err: ctx.Err()}
	case s.requests <- req:
	}
	return out
}

// Extract runs the response extractor synchronously with lifecycle
// events. Extraction is a pure transform and needs no pool worker.
func (s *Service) Extract(response map[string]any, query string) *core.RowSet {
	start := time.Now()
	id := uuid.New().String()
	s.emit(core.EngineEvent{Type: core.ExtractStart, RequestID: id, Timestamp: start.UnixMilli()})

	rs := s.extractor.Extract(response, query)

	duration := time.Since(start).Milliseconds()
	event := core.EngineEvent{Type: core.ExtractSuccess, RequestID: id, Timestamp: time.Now().UnixMilli(), Duration: &duration}
	if rs == nil {
		event.Type = core.ExtractFailed
	} else {
		rs.Each(func(_ string, rows []core.Row) { event.RowsOut += len(rows) })
	}
	s.emit(event)
	return rs
}

// Close stops the pool and waits for in-flight computations. Requests
// still queued but not yet picked up resolve with ErrClosed.
func (s *Service) Close() {
	s.closing.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		s.wg.Wait()
		for {
			select {
			case req := <-s.requests:
				req.out <- Outcome{ID: req.id, Err: ErrClosed}
			default:
				return
			}
		}
	})
}

func (s *Service) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case req := <-s.requests:
			s.process(req)
		}
	}
}

func (s *Service) process(req request) {
	start := time.Now()
	s.emit(core.EngineEvent{
		Type:      core.ComputeStart,
		RequestID: req.id.String(),
		Timestamp: start.UnixMilli(),
		RowsIn:    len(req.input.Data),
	})

	res, err := s.compute(req)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		msg := err.Error()
		s.emit(core.EngineEvent{
			Type:      core.ComputeFailed,
			RequestID: req.id.String(),
			Timestamp: time.Now().UnixMilli(),
			RowsIn:    len(req.input.Data),
			Error:     &msg,
			Duration:  &duration,
		})
		s.logger.Error("computation failed",
			zap.String("request", req.id.String()),
			zap.Error(err))
		req.out <- Outcome{ID: req.id, Err: err}
		return
	}

	s.emit(core.EngineEvent{
		Type:      core.ComputeSuccess,
		RequestID: req.id.String(),
		Timestamp: time.Now().UnixMilli(),
		RowsIn:    len(req.input.Data),
		RowsOut:   len(res.SortedData),
		Duration:  &duration,
	})
	s.logger.Debug("computation finished",
		zap.String("request", req.id.String()),
		zap.Int("rows", len(res.SortedData)),
		zap.Int64("ms", duration))
	req.out <- Outcome{ID: req.id, Result: res}
}

// compute recovers pathological panics (for example a comparator
// panicking on exotic input) at the worker boundary and surfaces them
// as the invocation's error; documented edge-case inputs never panic.
func (s *Service) compute(req request) (res *pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panicked: %v", r)
		}
	}()
	if err := req.ctx.Err(); err != nil {
		return nil, err
	}
	return s.engine.Compute(req.input), nil
}

func (s *Service) emit(event core.EngineEvent) {
	if s.bus != nil {
		s.bus.Emit(string(event.Type), event)
	}
}
