package api

import "context"

// toggleOps binds one relation to its counter. upsert and remove are the
// atomic relation-row writes; they report whether a row was actually created
// or removed. adjust applies the counter delta, including any reverse-side
// aggregate on the row's owner.
type toggleOps struct {
	upsert func(ctx context.Context) (inserted bool, err error)
	remove func(ctx context.Context) (deleted bool, err error)
	adjust func(ctx context.Context, delta int) error
}

// toggleRelation drives a relation row into the desired state and keeps the
// denormalized counter in step. The counter moves by exactly one per state
// transition: the adjustment is conditioned on the outcome the row write
// itself reported, never on a separate existence read, so concurrent
// identical toggles cannot drift the counter. Repeating a toggle that is
// already in the desired state is a no-op.
func toggleRelation(ctx context.Context, desired bool, ops toggleOps) error {
	if desired {
		inserted, err := ops.upsert(ctx)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		return ops.adjust(ctx, 1)
	}

	deleted, err := ops.remove(ctx)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}
	return ops.adjust(ctx, -1)
}
