// Package store holds the injected key-value contracts behind the pipeline's
// shared state. The pipeline only sees these interfaces; swapping the memory
// backend for a persistent one is a wiring change.
package store

import (
	"context"

	"github.com/storelink/affbridge/internal/models"
)

// AttributionStore maps a normalized (lowercase) email to the most recent
// attribution capture. Overwrite is last-write-wins.
type AttributionStore interface {
	Put(ctx context.Context, email string, rec models.AttributionRecord) error
	Get(ctx context.Context, email string) (models.AttributionRecord, bool, error)
}

// TokenStore maps a tenant (store id) to its access credential. At most one
// credential per tenant.
type TokenStore interface {
	Set(ctx context.Context, storeID, token string) error
	Get(ctx context.Context, storeID string) (string, bool, error)
	// List returns connected tenant ids in a stable order.
	List(ctx context.Context) ([]string, error)
}
