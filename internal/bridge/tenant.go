package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/storelink/affbridge/internal/store"
)

// ErrNoTenant means no connected store credential is available for an
// operation that requires one.
var ErrNoTenant = errors.New("no store/token available")

// TenantSelector decides which connected store an affiliate-side event
// targets. The affiliate platform does not say, so the strategy is explicit
// and swappable.
type TenantSelector interface {
	Select(ctx context.Context) (string, error)
}

// FirstConnected picks the first tenant holding a credential. A stand-in for
// real affiliate-account-to-store routing.
type FirstConnected struct {
	Tokens store.TokenStore
}

func (f FirstConnected) Select(ctx context.Context) (string, error) {
	ids, err := f.Tokens.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list tenants: %w", err)
	}
	if len(ids) == 0 {
		return "", ErrNoTenant
	}
	return ids[0], nil
}
