package publishers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Builders maps publisher types to their constructors. Types are matched
// case-insensitively. The zero value is ready to use.
type Builders struct {
	mu     sync.RWMutex
	byType map[string]Builder
}

// NewBuilders returns an empty set of builders.
func NewBuilders() *Builders {
	return &Builders{byType: make(map[string]Builder)}
}

// DefaultBuilders knows every publisher type this package ships.
func DefaultBuilders() *Builders {
	return NewBuilders().
		Add(TypeHTTP, newHTTPPublisher).
		Add(TypeSQS, newSQSPublisher).
		Add(TypeSNS, newSNSPublisher).
		Add(TypeGCPPubSub, newGCPPubSubPublisher)
}

// Add registers fn for typ, replacing any previous builder. Blank types and
// nil builders are ignored.
func (b *Builders) Add(typ string, fn Builder) *Builders {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" || fn == nil {
		return b
	}
	b.mu.Lock()
	if b.byType == nil {
		b.byType = make(map[string]Builder)
	}
	b.byType[key] = fn
	b.mu.Unlock()
	return b
}

// Types lists the registered types in sorted order.
func (b *Builders) Types() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.byType))
	for typ := range b.byType {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// Build constructs the publisher described by cfg.
func (b *Builders) Build(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("publisher %q: missing type", cfg.ID)
	}

	b.mu.RLock()
	fn := b.byType[key]
	b.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("publisher %q: unknown type %q (known: %s)", cfg.ID, cfg.Type, strings.Join(b.Types(), ", "))
	}
	return fn(ctx, cfg, ensureLogger(log))
}

// BuildAll constructs a publisher for each config in order. When one fails,
// the ones already built are closed and the error is returned.
func BuildAll(ctx context.Context, b *Builders, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	if b == nil || len(cfgs) == 0 {
		return nil, nil
	}

	built := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := b.Build(ctx, cfg, log)
		if err != nil {
			_ = closeAll(built)
			return nil, fmt.Errorf("build publisher %q: %w", cfg.ID, err)
		}
		built = append(built, pub)
	}
	return built, nil
}
