package fsdata

import (
	"context"
	"testing"
	"testing/fstest"
)

func TestLoadCategoriesReadsJSONFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"world-geo.json": {Data: []byte(`{"slug":"world-geo","questions":[]}`)},
		"Questions.JSON": {Data: []byte(`{"questions":[]}`)},
		"readme.txt":     {Data: []byte(`not a category`)},
	}
	provider := NewProviderFS(fsys)

	records, err := provider.LoadCategories(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %v", len(records), records)
	}
	if _, ok := records["world-geo"]; !ok {
		t.Fatalf("expected world-geo keyed by filename")
	}
	if _, ok := records["questions"]; !ok {
		t.Fatalf("expected case-insensitive json extension and lowercased key")
	}
}

func TestLoadCategoriesMissingDir(t *testing.T) {
	provider := NewProvider(t.TempDir() + "/nope")
	if _, err := provider.LoadCategories(context.Background()); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
