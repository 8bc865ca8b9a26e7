// Package ingestion streams customer and order records from input sources into
// the cohort registry and order aggregator.
package ingestion

import (
	"context"

	"cohort-retention/internal/domain"
)

// CustomerSource provides raw customer records.
type CustomerSource interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// ReadCustomers calls fn once per record, in source order.
	ReadCustomers(ctx context.Context, fn func(domain.CustomerRecord)) error
}

// OrderSource provides raw order records.
type OrderSource interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// ReadOrders calls fn once per record, in source order.
	ReadOrders(ctx context.Context, fn func(domain.OrderRecord)) error
}

// malformedCounter is implemented by sources that drop rows they cannot parse.
type malformedCounter interface {
	Malformed() int
}

// MemoryCustomerSource serves customer records from a slice.
type MemoryCustomerSource struct {
	name    string
	records []domain.CustomerRecord
}

// NewMemoryCustomerSource creates a source over records.
func NewMemoryCustomerSource(name string, records []domain.CustomerRecord) *MemoryCustomerSource {
	return &MemoryCustomerSource{name: name, records: records}
}

// Name identifies the source in logs and metrics.
func (s *MemoryCustomerSource) Name() string { return s.name }

// ReadCustomers calls fn for every record. Stops early if ctx is cancelled.
func (s *MemoryCustomerSource) ReadCustomers(ctx context.Context, fn func(domain.CustomerRecord)) error {
	for _, rec := range s.records {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(rec)
	}
	return nil
}

// MemoryOrderSource serves order records from a slice.
type MemoryOrderSource struct {
	name    string
	records []domain.OrderRecord
}

// NewMemoryOrderSource creates a source over records.
func NewMemoryOrderSource(name string, records []domain.OrderRecord) *MemoryOrderSource {
	return &MemoryOrderSource{name: name, records: records}
}

// Name identifies the source in logs and metrics.
func (s *MemoryOrderSource) Name() string { return s.name }

// ReadOrders calls fn for every record. Stops early if ctx is cancelled.
func (s *MemoryOrderSource) ReadOrders(ctx context.Context, fn func(domain.OrderRecord)) error {
	for _, rec := range s.records {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(rec)
	}
	return nil
}

var (
	_ CustomerSource = (*MemoryCustomerSource)(nil)
	_ OrderSource    = (*MemoryOrderSource)(nil)
)
