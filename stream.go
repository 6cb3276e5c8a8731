package llmrouter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	routererrors "github.com/Sherin-SEF-AI/llm-router/pkg/errors"
	"github.com/Sherin-SEF-AI/llm-router/pkg/provider"
	"github.com/Sherin-SEF-AI/llm-router/pkg/types"
	"github.com/Sherin-SEF-AI/llm-router/strategies"
)

// Stream delivers a completion chunk by chunk. Obtain one from
// Router.Stream, drain it with Recv until io.EOF, and Close it. A cached
// response is replayed as a single chunk.
//
// Recv and Close must not be called concurrently with each other.
type Stream struct {
	router *Router
	req    *types.Request

	// cached replay
	cached     *types.Completion
	cachedSent bool

	// live stream state
	ctx      context.Context
	cancel   context.CancelFunc
	handler  provider.ChunkStream
	record   *provider.Record
	first    string
	hasFirst bool
	firstEOF bool
	buf      strings.Builder
	started  time.Time
	finished bool
	err      error

	closeOnce sync.Once
}

// Stream routes a streaming completion request. Failover applies only
// before the first byte arrives: once chunks flow, the request is pinned
// to its provider and a mid-stream error is terminal.
func (r *Router) Stream(ctx context.Context, req *types.Request) (*Stream, error) {
	if r.closed.Load() {
		return nil, routererrors.NewConfigError("router is closed")
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	r.totalRequests.Add(1)

	if comp, ok := r.cacheLookup(ctx, req); ok {
		r.successRequests.Add(1)
		return &Stream{router: r, req: req, cached: comp}, nil
	}

	candidates, err := r.rank(req)
	if err != nil {
		r.failedRequests.Add(1)
		if r.metrics != nil {
			r.metrics.RecordFailure(req.Model)
		}
		return nil, err
	}

	s := &Stream{router: r, req: req}

	err = r.executor.Execute(ctx, req.Model, candidates, func(ctx context.Context, cand strategies.Candidate, timeout time.Duration) error {
		// The timeout covers connecting and the first byte only. A watchdog
		// cancels the stream context if the first byte never shows up; it is
		// disarmed as soon as one does, so a healthy long stream is not cut
		// off mid-flight.
		streamCtx, cancel := context.WithCancel(ctx)
		watchdog := time.AfterFunc(timeout, cancel)

		start := time.Now()
		handler, err := cand.Adapter.Stream(streamCtx, req)
		if err != nil {
			watchdog.Stop()
			cancel()
			return err
		}

		chunk, err := handler.Next()
		if err != nil && err != io.EOF {
			watchdog.Stop()
			handler.Close()
			cancel()
			return err
		}
		watchdog.Stop()

		s.ctx = streamCtx
		s.cancel = cancel
		s.handler = handler
		s.record = cand.Record
		s.started = start
		if err == io.EOF {
			s.firstEOF = true
		} else {
			s.first = chunk
			s.hasFirst = true
		}
		return nil
	})
	if err != nil {
		r.failedRequests.Add(1)
		if r.metrics != nil {
			r.metrics.RecordFailure(req.Model)
		}
		return nil, err
	}

	return s, nil
}

// Recv returns the next content chunk. It returns io.EOF once the stream
// is complete; any other error is terminal for this stream.
func (s *Stream) Recv() (string, error) {
	if s.err != nil {
		return "", s.err
	}

	if s.cached != nil {
		if s.cachedSent {
			return "", io.EOF
		}
		s.cachedSent = true
		return s.cached.Content, nil
	}

	if s.hasFirst {
		s.hasFirst = false
		s.buf.WriteString(s.first)
		return s.first, nil
	}

	if s.finished {
		return "", io.EOF
	}
	if s.firstEOF {
		s.complete()
		return "", io.EOF
	}

	chunk, err := s.handler.Next()
	if err == io.EOF {
		s.complete()
		return "", io.EOF
	}
	if err != nil {
		// Mid-stream failure after bytes were delivered. Failing over here
		// would replay content the caller already consumed, so the stream
		// ends with an error instead.
		s.err = fmt.Errorf("stream from %s interrupted: %w", s.record.Name, err)
		s.router.monitor.ReportFailure(s.record.Name)
		s.router.recordOutcome(s.record.Name, false, 0)
		s.router.failedRequests.Add(1)
		if s.router.metrics != nil {
			s.router.metrics.RecordFailure(s.req.Model)
		}
		return "", s.err
	}

	s.buf.WriteString(chunk)
	return chunk, nil
}

// complete runs the end-of-stream bookkeeping: assemble the full
// completion, record cost and stats, and cache the concatenated content.
func (s *Stream) complete() {
	if s.finished {
		return
	}
	s.finished = true

	usage := s.handler.Usage()
	comp := &types.Completion{
		Content:   s.buf.String(),
		Provider:  s.record.Name,
		Model:     s.req.Model,
		Usage:     usage,
		Latency:   time.Since(s.started),
		Timestamp: time.Now(),
	}
	comp.Cost = s.router.costOf(s.record, comp.Model, usage)

	s.router.finishLive(s.ctx, s.req, comp)
}

// Cached reports whether this stream replays a cached completion.
func (s *Stream) Cached() bool {
	return s.cached != nil
}

// Provider returns the serving provider's name.
func (s *Stream) Provider() string {
	if s.cached != nil {
		return s.cached.Provider
	}
	return s.record.Name
}

// Close releases the upstream connection. Closing before EOF abandons the
// stream: it counts toward AbandonedStreams rather than success or failure,
// nothing is cached, and cost is recorded only when the upstream already
// reported token usage.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cached != nil {
			return
		}
		if s.cancel != nil {
			s.cancel()
		}
		if s.handler != nil {
			if !s.finished && s.err == nil {
				s.router.abandonedStreams.Add(1)
				if usage := s.handler.Usage(); usage.TotalTokens > 0 {
					cost := s.router.costOf(s.record, s.req.Model, usage)
					s.router.tracker.Record(s.record.Name, s.req.Model, cost,
						usage.PromptTokens, usage.CompletionTokens, time.Time{})
				}
			}
			err = s.handler.Close()
		}
	})
	return err
}
