package cursorkit

import (
	"context"

	"github.com/autom8ter/cursorkit/errors"
	"github.com/autom8ter/cursorkit/model"
	"github.com/autom8ter/machine/v4"
)

func (d *DB) publish(ctx context.Context, changes []model.Change) {
	for _, change := range changes {
		d.machine.Publish(ctx, machine.Message{
			Channel: change.Store,
			Body:    change,
		})
	}
}

// ChangeStream calls fn with every change committed to the store. It blocks until ctx is done, fn returns
// false or fn fails.
func (d *DB) ChangeStream(ctx context.Context, store string, fn func(ctx context.Context, change model.Change) (bool, error)) error {
	if _, err := d.Descriptor(store); err != nil {
		return err
	}
	err := d.machine.Subscribe(ctx, store, func(ctx context.Context, msg machine.Message) (bool, error) {
		change, ok := msg.Body.(model.Change)
		if !ok {
			return true, nil
		}
		return fn(ctx, change)
	})
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return errors.Wrap(err, errors.Internal, "change stream of %s failed", store)
}
