package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}
func (s *stubPublisher) Close() error {
	s.closed = true
	return nil
}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	failure := errors.New("failed")
	ok := &stubPublisher{id: "ok", typ: "http"}
	bad := &stubPublisher{id: "bad", typ: "sqs", err: failure}
	fanout := NewFanout([]Publisher{ok, nil, bad})

	if fanout.Size() != 2 {
		t.Fatalf("expected nil publishers to be dropped, size=%d", fanout.Size())
	}

	count, err := fanout.Publish(context.Background(), Event{})
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if !errors.Is(err, failure) {
		t.Fatalf("expected aggregated error to wrap failure, got %v", err)
	}
	if ok.calls != 1 || bad.calls != 1 {
		t.Fatalf("expected every publisher to be called once")
	}

	if err := fanout.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !ok.closed || !bad.closed {
		t.Fatalf("expected publishers to be closed")
	}
}

type slowPublisher struct {
	id    string
	delay time.Duration
	err   error
}

func (s *slowPublisher) ID() string   { return s.id }
func (s *slowPublisher) Type() string { return "slow" }
func (s *slowPublisher) Publish(ctx context.Context, _ Event) error {
	select {
	case <-time.After(s.delay):
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestFanoutDeliversConcurrently(t *testing.T) {
	first := errors.New("first failed")
	second := errors.New("second failed")
	fanout := NewFanout([]Publisher{
		&slowPublisher{id: "a", delay: 150 * time.Millisecond, err: first},
		&slowPublisher{id: "b", delay: 150 * time.Millisecond},
		&slowPublisher{id: "c", delay: 10 * time.Millisecond, err: second},
	})

	start := time.Now()
	count, err := fanout.Publish(context.Background(), Event{})
	elapsed := time.Since(start)

	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if elapsed >= 300*time.Millisecond {
		t.Fatalf("expected concurrent delivery, took %v", elapsed)
	}
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected both failures, got %v", err)
	}
	msg := err.Error()
	if strings.Index(msg, "publisher[a]") > strings.Index(msg, "publisher[c]") {
		t.Fatalf("expected errors in publisher order, got %q", msg)
	}
}

func TestFanoutNilIsEmpty(t *testing.T) {
	var fanout *Fanout
	count, err := fanout.Publish(context.Background(), Event{})
	if count != 0 || err != nil {
		t.Fatalf("nil fanout should be a no-op, got %d %v", count, err)
	}
}

func TestBuildAllWithDefaultBuilders(t *testing.T) {
	pubs, err := BuildAll(context.Background(), DefaultBuilders(), []PublisherConfig{
		{ID: "http", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com", Method: "POST", TimeoutSeconds: 1}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected 1 publisher, got %d", len(pubs))
	}
}

func TestBuildAllUnknownTypeClosesBuilt(t *testing.T) {
	built := &stubPublisher{id: "first", typ: "stub"}
	builders := NewBuilders().Add("stub", func(context.Context, PublisherConfig, Logger) (Publisher, error) {
		return built, nil
	})

	_, err := BuildAll(context.Background(), builders, []PublisherConfig{
		{ID: "first", Type: "stub"},
		{ID: "second", Type: "kafka"},
	}, nil)
	if err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if !built.closed {
		t.Fatalf("expected already built publisher to be closed")
	}
}

func TestBuildersMatchTypesCaseInsensitively(t *testing.T) {
	var builders Builders
	builders.Add(" Stub ", func(_ context.Context, cfg PublisherConfig, _ Logger) (Publisher, error) {
		return &stubPublisher{id: cfg.ID, typ: "stub"}, nil
	})
	builders.Add("", func(context.Context, PublisherConfig, Logger) (Publisher, error) { return nil, nil })

	if got := builders.Types(); len(got) != 1 || got[0] != "stub" {
		t.Fatalf("unexpected types %v", got)
	}
	pub, err := builders.Build(context.Background(), PublisherConfig{ID: "x", Type: "STUB"}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if pub.ID() != "x" {
		t.Fatalf("expected publisher x, got %q", pub.ID())
	}

	if _, err := builders.Build(context.Background(), PublisherConfig{ID: "y"}, nil); err == nil {
		t.Fatalf("expected error for missing type")
	}
	_, err = builders.Build(context.Background(), PublisherConfig{ID: "z", Type: "kafka"}, nil)
	if err == nil || !strings.Contains(err.Error(), "known: stub") {
		t.Fatalf("expected unknown type error listing known types, got %v", err)
	}
}
