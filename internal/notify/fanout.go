package notify

import (
	"context"
	"errors"

	"github.com/playperu/pickem/internal/game"
)

// Fanout delivers each notification to every sink. A failing sink does not
// stop the others; their errors are joined.
type Fanout []game.Notifier

func (f Fanout) Notify(ctx context.Context, gameID string, n game.Notification) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Notify(ctx, gameID, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
