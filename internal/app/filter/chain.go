package filter

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/tonefold/tonefold/internal/app/importer"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the record.
func (c *Chain) Execute(rec importer.Record) Result {
	for _, f := range c.filters {
		result := f.Check(rec)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Apply runs every record through the chain and returns the accepted
// ones. Rejections are logged per record.
func (c *Chain) Apply(records []importer.Record) []importer.Record {
	if len(c.filters) == 0 {
		return records
	}
	accepted := make([]importer.Record, 0, len(records))
	for _, rec := range records {
		result := c.Execute(rec)
		if !result.Accepted {
			zlog.Debug().Str("file", rec.FileName).Str("code", result.Code).Msg("filter: record rejected")
			continue
		}
		accepted = append(accepted, rec)
	}
	return accepted
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
