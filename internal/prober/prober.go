package prober

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/samvad-hq/samvad-probe/internal/logger"
	"github.com/samvad-hq/samvad-probe/pkg/httpclient"
	"github.com/samvad-hq/samvad-probe/pkg/publishers"
	"github.com/samvad-hq/samvad-probe/pkg/targets"
)

// Service probes targets and publishes their state transitions.
type Service struct {
	client    httpclient.Client
	publisher EventPublisher
	store     StateStore
	log       logger.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	states   map[string]string
}

// NewService wires a prober. publisher and store may be nil.
func NewService(client httpclient.Client, publisher EventPublisher, store StateStore, log logger.Logger) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		client:    client,
		publisher: publisher,
		store:     store,
		log:       log,
		limiters:  make(map[string]*rate.Limiter),
		states:    make(map[string]string),
	}
}

// Run probes every target once, in order. Probe failures are reported as
// down outcomes; the returned error only carries store and publisher failures
// or context cancellation.
func (s *Service) Run(ctx context.Context, list []targets.Target) (*Report, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("prober service is not initialized")
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no targets configured for probing")
	}

	report := newReport(len(list))
	var errs []error
	for _, t := range list {
		if err := s.limiter(t).Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("wait for target %s: %w", t.ID, err))
			break
		}

		outcome := s.Probe(ctx, t)
		if err := ctx.Err(); err != nil {
			// An interrupted probe says nothing about the target.
			errs = append(errs, fmt.Errorf("probe target %s: %w", t.ID, err))
			break
		}
		report.add(outcome)
		s.logOutcome(outcome)

		if err := s.track(ctx, t, outcome); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("state tracking failed", "track_error", map[string]any{
				"target_id": t.ID,
				"error":     err.Error(),
			})
		}
	}
	report.finalize()

	return report, errors.Join(errs...)
}

// Probe performs one request for t and evaluates its expectations.
func (s *Service) Probe(ctx context.Context, t targets.Target) Outcome {
	out := Outcome{
		TargetID:   t.ID,
		TargetName: t.Name,
		State:      StateDown,
		CheckedAt:  time.Now().UTC(),
	}

	req, err := t.Request()
	if err != nil {
		out.Kind = httpclient.KindEncodingFailed.String()
		out.Detail = err.Error()
		return out
	}

	start := time.Now()
	res, err := s.client.Perform(ctx, req)
	out.Latency = time.Since(start)

	if err != nil {
		out.Kind = httpclient.KindOf(err).String()
		out.Detail = err.Error()
		if cerr, ok := httpclient.AsError(err); ok {
			out.StatusCode = cerr.StatusCode
		}
		return out
	}
	out.StatusCode = res.StatusCode()

	if err := Evaluate(t.Expect, res); err != nil {
		out.Kind = KindExpectationFailed
		out.Detail = err.Error()
		return out
	}

	out.State = StateUp
	out.Kind = KindOK
	return out
}

// track publishes an event when the outcome state differs from the last known
// state. The new state is recorded only once the event was delivered to at
// least one publisher, so a failed delivery is retried on the next pass.
func (s *Service) track(ctx context.Context, t targets.Target, out Outcome) error {
	previous, err := s.lastState(t.ID)
	if err != nil {
		return fmt.Errorf("load state for target %s: %w", t.ID, err)
	}
	if previous == out.State {
		return nil
	}

	if s.publisher != nil {
		evt := publishers.NewEvent(t.ID, t.Name, out.State, previous)
		evt.Kind = out.Kind
		evt.StatusCode = out.StatusCode
		evt.LatencyMs = out.Latency.Milliseconds()
		evt.Detail = out.Detail
		evt.ObservedAt = out.CheckedAt

		delivered, err := s.publisher.Publish(ctx, evt)
		if err != nil && delivered == 0 {
			return fmt.Errorf("publish transition for target %s: %w", t.ID, err)
		}
		if err != nil {
			s.log.WarnObj("transition partially published", "publish_error", map[string]any{
				"target_id": t.ID,
				"event_id":  evt.ID,
				"delivered": delivered,
				"error":     err.Error(),
			})
		}
		s.log.InfoObj("state transition published", "transition", map[string]any{
			"target_id": t.ID,
			"event_id":  evt.ID,
			"from":      previous,
			"to":        out.State,
		})
	}

	s.mu.Lock()
	s.states[t.ID] = out.State
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveState(t.ID, out.State); err != nil {
			return fmt.Errorf("save state for target %s: %w", t.ID, err)
		}
	}
	return nil
}

func (s *Service) lastState(id string) (string, error) {
	s.mu.Lock()
	state, ok := s.states[id]
	s.mu.Unlock()
	if ok || s.store == nil {
		return state, nil
	}

	state, found, err := s.store.LastState(id)
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	return state, nil
}

// limiter returns the target's limiter, created on first use. Limiters live
// across passes so back-to-back runs still honour the request delay.
func (s *Service) limiter(t targets.Target) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	lim, ok := s.limiters[t.ID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(t.RequestDelay()), 1)
		s.limiters[t.ID] = lim
	}
	return lim
}

func (s *Service) logOutcome(out Outcome) {
	fields := map[string]any{
		"target_id":  out.TargetID,
		"state":      out.State,
		"kind":       out.Kind,
		"status":     out.StatusCode,
		"latency_ms": out.Latency.Milliseconds(),
	}
	if out.Up() {
		s.log.DebugObj("target probed", "probe_result", fields)
		return
	}
	fields["detail"] = out.Detail
	s.log.WarnObj("target down", "probe_result", fields)
}
