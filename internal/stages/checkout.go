package stages

import (
	"context"

	"github.com/mlship/mlship/internal/gitx"
)

// Checkout materializes the triggering revision in the build directory.
type Checkout struct {
	Opts gitx.SyncOptions

	sync func(ctx context.Context, opts gitx.SyncOptions) error
}

// NewCheckout creates the checkout stage.
func NewCheckout(opts gitx.SyncOptions) *Checkout {
	return &Checkout{Opts: opts, sync: gitx.Sync}
}

func (s *Checkout) Name() string { return NameCheckout }

func (s *Checkout) Run(ctx context.Context) error {
	return s.sync(ctx, s.Opts)
}
