package quotelog

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// MultiSink writes to every sink in order. A failing sink does not stop the
// ones after it.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, q Quote) error {
	var errs []error
	for i, s := range m {
		if s == nil {
			continue
		}
		if err := s.Write(ctx, q); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return multierr.Combine(errs...)
}
