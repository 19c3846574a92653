package catalog

import (
	"context"
	"testing"
	"time"
)

// openTestCatalog opens an in-memory SQLiteCatalog for use in tests.
func openTestCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()
	c, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory catalog: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleRun(collection, document string) Run {
	return Run{
		Collection:        collection,
		Document:          document,
		StoreProvider:     "milvus",
		EmbeddingProvider: "openai",
		EmbeddingModel:    "text-embedding-3-small",
		IndexMode:         "hnsw",
		VectorDimension:   1536,
		TotalVectors:      42,
		Duration:          1500 * time.Millisecond,
	}
}

func Test_Catalog_RecordAndRecent(t *testing.T) {
	t.Parallel()
	c := openTestCatalog(t)
	ctx := context.Background()

	if err := c.Record(ctx, sampleRun("report_openai_20240101120000", "report.pdf")); err != nil {
		t.Fatalf("record: %v", err)
	}

	runs, err := c.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("want 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.Collection != "report_openai_20240101120000" {
		t.Errorf("collection: got %q", got.Collection)
	}
	if got.Document != "report.pdf" {
		t.Errorf("document: got %q", got.Document)
	}
	if got.TotalVectors != 42 {
		t.Errorf("total vectors: want 42, got %d", got.TotalVectors)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Errorf("duration: want 1.5s, got %v", got.Duration)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func Test_Catalog_RecentLimitRespected(t *testing.T) {
	t.Parallel()
	c := openTestCatalog(t)
	ctx := context.Background()

	for i := range 6 {
		run := sampleRun("coll", "doc.pdf")
		run.CreatedAt = time.Unix(int64(1000+i), 0)
		if err := c.Record(ctx, run); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	runs, err := c.Recent(ctx, 4)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 4 {
		t.Errorf("want 4 runs, got %d", len(runs))
	}
}

func Test_Catalog_RecentNewestFirst(t *testing.T) {
	t.Parallel()
	c := openTestCatalog(t)
	ctx := context.Background()

	for i, doc := range []string{"old.pdf", "mid.pdf", "new.pdf"} {
		run := sampleRun("coll", doc)
		run.CreatedAt = time.Unix(int64(1000+i), 0)
		if err := c.Record(ctx, run); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	runs, err := c.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	want := []string{"new.pdf", "mid.pdf", "old.pdf"}
	for i, doc := range want {
		if runs[i].Document != doc {
			t.Errorf("runs[%d]: want %q, got %q", i, doc, runs[i].Document)
		}
	}
}

func Test_Catalog_ByCollectionIsolation(t *testing.T) {
	t.Parallel()
	c := openTestCatalog(t)
	ctx := context.Background()

	if err := c.Record(ctx, sampleRun("coll_a", "a.pdf")); err != nil {
		t.Fatalf("record a: %v", err)
	}
	if err := c.Record(ctx, sampleRun("coll_b", "b.pdf")); err != nil {
		t.Fatalf("record b: %v", err)
	}

	runs, err := c.ByCollection(ctx, "coll_a")
	if err != nil {
		t.Fatalf("by collection: %v", err)
	}
	if len(runs) != 1 || runs[0].Document != "a.pdf" {
		t.Errorf("collection isolation failed: got %v", runs)
	}
}

func Test_Catalog_EmptyReturnsNil(t *testing.T) {
	t.Parallel()
	c := openTestCatalog(t)
	ctx := context.Background()

	runs, err := c.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent empty: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("want 0 runs, got %d", len(runs))
	}
}
