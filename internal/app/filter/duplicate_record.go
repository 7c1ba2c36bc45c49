package filter

import (
	"github.com/tonefold/tonefold/internal/app/importer"
)

// DuplicateRecordFilter rejects records whose identity was already seen
// in the current scan batch. The first occurrence wins; later copies of
// the same file identity (hard links, duplicated trees) are dropped
// before they reach the importer.
type DuplicateRecordFilter struct {
	seen map[string]bool
}

// NewDuplicateRecordFilter creates a new duplicate record filter.
func NewDuplicateRecordFilter() *DuplicateRecordFilter {
	return &DuplicateRecordFilter{seen: make(map[string]bool)}
}

func (f *DuplicateRecordFilter) Name() string {
	return "duplicate_record_filter"
}

func (f *DuplicateRecordFilter) Description() string {
	return "Rejects records whose identity already appeared in the batch"
}

func (f *DuplicateRecordFilter) ReturnCodes() []string {
	return []string{"duplicate_record"}
}

func (f *DuplicateRecordFilter) ValidateConfig(settings map[string]any) error {
	// No settings
	return nil
}

func (f *DuplicateRecordFilter) Check(rec importer.Record) Result {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[rec.Identity] {
		return Reject("duplicate_record")
	}
	f.seen[rec.Identity] = true
	return Accept()
}

func init() {
	Register("duplicate_record_filter", func() Filter {
		return NewDuplicateRecordFilter()
	})
}
