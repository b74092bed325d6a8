package notify

import (
	"context"
	"errors"
)

// MultiPublisher sends every event to each publisher in turn. One failing
// sink does not stop the others.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, topic, event string, payload any) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, topic, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
