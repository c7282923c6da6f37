package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/anita-labs/anita-core/internal/chunker"
	"github.com/anita-labs/anita-core/internal/core/domain"
	"github.com/anita-labs/anita-core/internal/core/ports/driven/mocks"
	"github.com/anita-labs/anita-core/internal/core/ports/driving"
	"github.com/anita-labs/anita-core/internal/runtime"
)

// Test helper to create a DocumentIndexService with mocks
func createTestDocumentService(t *testing.T) (
	driving.DocumentIndexService,
	*mocks.MockVectorIndex,
	*mocks.MockDistributedLock,
	*runtime.Services,
) {
	t.Helper()

	index := mocks.NewMockVectorIndex()
	lock := mocks.NewMockDistributedLock()

	services := runtime.NewServices(domain.NewRuntimeConfig("memory"))
	services.SetEmbeddingService(mocks.NewMockEmbeddingService())

	svc := NewDocumentService(index, services, chunker.New(50, 10), lock, DefaultDocumentConfig(), testLogger())
	return svc, index, lock, services
}

func TestDocuments_EmptyIndexSearch(t *testing.T) {
	svc, _, _, _ := createTestDocumentService(t)

	chunks, err := svc.SearchDocuments(context.Background(), "kas yra kintamasis", "lt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %v", chunks)
	}
}

func TestDocuments_IndexAndSearch(t *testing.T) {
	svc, index, _, _ := createTestDocumentService(t)
	ctx := context.Background()

	err := svc.IndexDocumentChunks(ctx, []string{
		"kintamasis saugo reikšmę programoje",
		"visiškai nesusijęs tekstas apie orą",
	}, "doc-1", "lt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if index.Count() != 2 {
		t.Fatalf("expected 2 vectors, got %d", index.Count())
	}

	chunks, err := svc.SearchDocuments(ctx, "kintamasis saugo reikšmę programoje", "lt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 relevant chunk, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "kintamasis saugo reikšmę programoje" {
		t.Errorf("unexpected chunk: %q", chunks[0])
	}
}

func TestDocuments_ThresholdIsPerCandidate(t *testing.T) {
	svc, _, _, _ := createTestDocumentService(t)
	ctx := context.Background()

	// Both chunks fit within TopK; only the relevant one survives the
	// distance filter.
	err := svc.IndexDocumentChunks(ctx, []string{
		"ciklas kartoja veiksmus",
		"debesys lietus saulė vėjas",
	}, "doc-1", "lt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks, err := svc.SearchDocuments(ctx, "ciklas kartoja veiksmus", "lt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Errorf("expected the irrelevant chunk filtered, got %v", chunks)
	}
}

func TestDocuments_SearchOrderedByDistance(t *testing.T) {
	svc, _, _, _ := createTestDocumentService(t)
	ctx := context.Background()

	err := svc.IndexDocumentChunks(ctx, []string{
		"masyvas saugo elementus",         // partial overlap
		"masyvas saugo elementus eilėje tvarkingai", // closer wording below
	}, "doc-1", "lt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks, err := svc.SearchDocuments(ctx, "masyvas saugo elementus", "lt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "masyvas saugo elementus" {
		t.Errorf("expected exact chunk first, got %q", chunks[0])
	}
}

func TestDocuments_LanguageFilter(t *testing.T) {
	svc, _, _, _ := createTestDocumentService(t)
	ctx := context.Background()

	err := svc.IndexDocumentChunks(ctx, []string{"variables store values"}, "doc-1", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks, err := svc.SearchDocuments(ctx, "variables store values", "lt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks across languages, got %v", chunks)
	}
}

func TestDocuments_ReindexReplacesChunks(t *testing.T) {
	svc, index, _, _ := createTestDocumentService(t)
	ctx := context.Background()

	if err := svc.IndexDocumentChunks(ctx, []string{"senas turinys", "dar senesnis"}, "doc-1", "lt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.IndexDocumentChunks(ctx, []string{"naujas turinys"}, "doc-1", "lt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if index.Count() != 1 {
		t.Errorf("expected re-index to replace chunks, got %d vectors", index.Count())
	}

	chunks, err := svc.SearchDocuments(ctx, "senas turinys", "lt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected old chunks gone, got %v", chunks)
	}
}

func TestDocuments_DeleteDocumentChunks(t *testing.T) {
	svc, index, _, _ := createTestDocumentService(t)
	ctx := context.Background()

	if err := svc.IndexDocumentChunks(ctx, []string{"a b c", "d e f"}, "doc-1", "lt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.IndexDocumentChunks(ctx, []string{"g h i"}, "doc-2", "lt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeleteDocumentChunks(ctx, "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if index.Count() != 1 {
		t.Errorf("expected only doc-2 vectors to remain, got %d", index.Count())
	}
}

func TestDocuments_IndexDocumentText(t *testing.T) {
	svc, index, _, _ := createTestDocumentService(t)
	ctx := context.Background()

	// Longer than the 50-rune window, so it splits into multiple chunks.
	text := strings.Repeat("kintamasis saugo reikšmę ", 10)
	if err := svc.IndexDocumentText(ctx, text, "doc-1", "lt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if index.Count() < 2 {
		t.Errorf("expected text to split into multiple chunks, got %d", index.Count())
	}
}

func TestDocuments_EmptyChunksClearsDocument(t *testing.T) {
	svc, index, _, _ := createTestDocumentService(t)
	ctx := context.Background()

	if err := svc.IndexDocumentChunks(ctx, []string{"turinys"}, "doc-1", "lt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.IndexDocumentChunks(ctx, nil, "doc-1", "lt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if index.Count() != 0 {
		t.Errorf("expected empty re-index to clear the document, got %d", index.Count())
	}
}

func TestDocuments_EmbeddingUnavailable(t *testing.T) {
	svc, _, _, services := createTestDocumentService(t)
	services.SetEmbeddingService(nil)

	_, err := svc.SearchDocuments(context.Background(), "kas yra kintamasis", "lt")
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}

	err = svc.IndexDocumentChunks(context.Background(), []string{"turinys"}, "doc-1", "lt")
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestDocuments_ConcurrentMutationRejected(t *testing.T) {
	svc, _, lock, _ := createTestDocumentService(t)

	lock.Hold("doc:doc-1")

	err := svc.IndexDocumentChunks(context.Background(), []string{"turinys"}, "doc-1", "lt")
	if !errors.Is(err, domain.ErrIndexBusy) {
		t.Errorf("expected ErrIndexBusy, got %v", err)
	}
}
