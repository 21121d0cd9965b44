// Package snapshot implements the durable last-writer-wins mapping from
// SKU to current inventory record. The engine is the only writer; the API
// layer reads it. Any key/value medium can back the interface.
package snapshot

import (
	"context"
	"errors"

	"github.com/shelfvision/stockwatch/internal/stock"
	"github.com/shelfvision/stockwatch/internal/vision"
)

// ErrNotFound is returned by Get for an unknown SKU.
var ErrNotFound = errors.New("sku not found")

// Store is the snapshot store adapter contract.
type Store interface {
	// Get returns the record for sku, or ErrNotFound.
	Get(ctx context.Context, sku vision.SKU) (*stock.Record, error)

	// Upsert atomically replaces the prior record for the SKU.
	Upsert(ctx context.Context, rec *stock.Record) error

	// ListAll returns all records ordered by SKU.
	ListAll(ctx context.Context) ([]stock.Record, error)
}
