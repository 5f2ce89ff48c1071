package vector

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3, "test-model")
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	ids := []string{"a", "b", "c"}
	if err := idx.Add(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("top result should be a, got %s", results[0].ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("scores should be non-increasing")
	}
}

func TestMemoryIndex_EmptySearch(t *testing.T) {
	idx, _ := NewMemoryIndex(2, "test-model")
	results, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("empty index should return empty list, got %d", len(results))
	}
}

func TestMemoryIndex_KCappedBySize(t *testing.T) {
	idx, _ := NewMemoryIndex(2, "test-model")
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"x"}, [][]float32{{1, 0}})
	results, err := idx.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected min(k, size)=1 results, got %d", len(results))
	}
}

func TestMemoryIndex_StableTies(t *testing.T) {
	idx, _ := NewMemoryIndex(2, "test-model")
	ctx := context.Background()
	// Identical vectors: tie must keep insertion order.
	_ = idx.Add(ctx, []string{"first", "second"}, [][]float32{{0, 1}, {0, 1}})
	for i := 0; i < 5; i++ {
		results, err := idx.Search(ctx, []float32{0, 1}, 2)
		if err != nil {
			t.Fatal(err)
		}
		if results[0].ID != "first" || results[1].ID != "second" {
			t.Fatalf("tie order not stable: %s, %s", results[0].ID, results[1].ID)
		}
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	idx, _ := NewMemoryIndex(2, "all-MiniLM-L6-v2")
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadMemoryIndex(path, "all-MiniLM-L6-v2", 2)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Errorf("loaded size = %d", loaded.Size())
	}
	results, err := loaded.Search(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].ID != "a" {
		t.Errorf("loaded search top = %s", results[0].ID)
	}
}

func TestLoadMemoryIndex_ModelMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	idx, _ := NewMemoryIndex(2, "all-MiniLM-L6-v2")
	_ = idx.Add(context.Background(), []string{"a"}, [][]float32{{1, 0}})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	_, err := LoadMemoryIndex(path, "bge-small-en-v1.5", 2)
	if !errors.Is(err, ErrModelMismatch) {
		t.Errorf("expected ErrModelMismatch, got %v", err)
	}
}

func TestLoadMemoryIndex_DimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	idx, _ := NewMemoryIndex(2, "m")
	_ = idx.Add(context.Background(), []string{"a"}, [][]float32{{1, 0}})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMemoryIndex(path, "m", 3); err == nil {
		t.Error("expected error for dimension mismatch")
	}
}

func TestHolder_Swap(t *testing.T) {
	a, _ := NewMemoryIndex(2, "m")
	b, _ := NewMemoryIndex(2, "m")
	_ = b.Add(context.Background(), []string{"x"}, [][]float32{{1, 0}})

	h := NewHolder(a)
	if h.Get().Size() != 0 {
		t.Error("holder should serve initial index")
	}
	old := h.Swap(b)
	if old != VectorIndex(a) {
		t.Error("Swap should return the previous index")
	}
	if h.Get().Size() != 1 {
		t.Error("holder should serve swapped index")
	}
}
