// Package fsdata discovers category definition files on disk: every
// *.json file under the data directory is one raw category record, keyed
// by its filename without the extension.
package fsdata

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type Provider struct {
	fsys fs.FS
}

// NewProvider reads category definitions from the directory at path.
func NewProvider(path string) *Provider {
	return &Provider{fsys: os.DirFS(path)}
}

// NewProviderFS reads category definitions from an fs.FS (tests, embeds).
func NewProviderFS(fsys fs.FS) *Provider {
	return &Provider{fsys: fsys}
}

func (p *Provider) LoadCategories(ctx context.Context) (map[string][]byte, error) {
	entries, err := fs.ReadDir(p.fsys, ".")
	if err != nil {
		return nil, err
	}

	records := make(map[string][]byte)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		raw, err := fs.ReadFile(p.fsys, name)
		if err != nil {
			// Unreadable files are skipped like unparsable ones;
			// one bad file must not hide the rest.
			continue
		}
		key := strings.TrimSuffix(name, filepath.Ext(name))
		records[strings.ToLower(key)] = raw
	}
	return records, nil
}
