package publishers

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Fanout delivers each event to every configured publisher concurrently.
type Fanout struct {
	publishers []Publisher
}

// NewFanout builds a dispatcher over pubs, skipping nil entries.
func NewFanout(pubs []Publisher) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			cp = append(cp, p)
		}
	}
	return &Fanout{publishers: cp}
}

// Publish sends evt to all publishers and waits for every delivery. It returns
// the number of publishers that accepted the event; failures are joined in
// publisher order.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.publishers) == 0 {
		return 0, nil
	}

	results := make([]error, len(f.publishers))
	var wg sync.WaitGroup
	for idx, p := range f.publishers {
		wg.Add(1)
		go func(idx int, p Publisher) {
			defer wg.Done()
			if err := p.Publish(ctx, evt); err != nil {
				results[idx] = fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err)
			}
		}(idx, p)
	}
	wg.Wait()

	delivered := 0
	for _, err := range results {
		if err == nil {
			delivered++
		}
	}
	return delivered, errors.Join(results...)
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Close releases publishers that hold connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeAll(f.publishers)
}
