package filter

import (
	"path/filepath"
	"strings"

	"github.com/tonefold/tonefold/internal/app/importer"
)

// HiddenPathFilter rejects records whose path contains a hidden
// component. macOS resource forks (._*) and dot-directories like
// .Trash are the usual offenders in a scanned library.
type HiddenPathFilter struct{}

func (f *HiddenPathFilter) Name() string {
	return "hidden_path_filter"
}

func (f *HiddenPathFilter) Description() string {
	return "Rejects files under hidden directories or with hidden names"
}

func (f *HiddenPathFilter) ReturnCodes() []string {
	return []string{"hidden_path"}
}

func (f *HiddenPathFilter) ValidateConfig(settings map[string]any) error {
	// No settings
	return nil
}

func (f *HiddenPathFilter) Check(rec importer.Record) Result {
	path := rec.Path
	if path == "" {
		path = rec.FileName
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return Reject("hidden_path")
		}
	}
	return Accept()
}

func init() {
	Register("hidden_path_filter", func() Filter {
		return &HiddenPathFilter{}
	})
}
