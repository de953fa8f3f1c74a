package engine

import "context"

// Transaction executes fn between Begin and Commit on h.
// It automatically commits the transaction if fn returns nil,
// and rolls back if fn returns an error or panics.
func Transaction(ctx context.Context, h Handle, fn func(Handle) error) (err error) {
	if err := h.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = h.Rollback(ctx)
			panic(p) // re-throw panic after rollback
		} else if err != nil {
			_ = h.Rollback(ctx)
		} else {
			err = h.Commit(ctx)
		}
	}()

	err = fn(h)
	return err
}
