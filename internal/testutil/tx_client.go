package testutil

import (
	"context"
	"time"

	"github.com/vircom/folio/internal/database"
	ierr "github.com/vircom/folio/internal/errors"
)

var _ database.IClient = (*InMemoryTxClient)(nil)

type txKey struct{}

// InMemoryTxClient emulates database transactions over in-memory stores.
// Top-level transactions are serialized, which stands in for the row lock
// taken by the SQL repositories; a failed transaction restores every
// registered store. Nested calls behave like savepoints.
type InMemoryTxClient struct {
	sem         chan struct{}
	lockTimeout time.Duration
	stores      []Snapshotter
}

// NewInMemoryTxClient returns a client guarding stores. Waiting longer than
// lockTimeout for a transaction yields ErrContention.
func NewInMemoryTxClient(lockTimeout time.Duration, stores ...Snapshotter) *InMemoryTxClient {
	return &InMemoryTxClient{
		sem:         make(chan struct{}, 1),
		lockTimeout: lockTimeout,
		stores:      stores,
	}
}

// InTx reports whether ctx is inside an in-memory transaction
func InTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

// Hold occupies the transaction slot until the returned func is called.
// Used to simulate a long-running competing transaction.
func (c *InMemoryTxClient) Hold() func() {
	c.sem <- struct{}{}
	return func() { <-c.sem }
}

func (c *InMemoryTxClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTx(ctx) {
		return c.run(ctx, fn)
	}

	timer := time.NewTimer(c.lockTimeout)
	defer timer.Stop()

	select {
	case c.sem <- struct{}{}:
	case <-timer.C:
		return ierr.NewError("lock wait timeout").
			WithHint("The resource is busy, please retry").
			Mark(ierr.ErrContention)
	case <-ctx.Done():
		return ierr.WithError(ctx.Err()).
			WithHint("The operation timed out waiting for a lock, please retry").
			Mark(ierr.ErrContention)
	}
	defer func() { <-c.sem }()

	return c.run(context.WithValue(ctx, txKey{}, true), fn)
}

func (c *InMemoryTxClient) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	restores := make([]func(), 0, len(c.stores))
	for _, s := range c.stores {
		restores = append(restores, s.Snapshot())
	}
	rollback := func() {
		for _, restore := range restores {
			restore()
		}
	}

	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	if err = fn(ctx); err != nil {
		rollback()
	}
	return err
}
