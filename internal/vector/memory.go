package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Artifact format: magic (8), format version (4), modelID len (4), modelID,
// dimensions (4), count (4), then per vector: idLen (4), id bytes,
// vector (dimensions*4 bytes). All little-endian.
const (
	artifactMagic         = "KOTAEVEC"
	artifactFormatVersion = uint32(1)
)

// MemoryIndex is an in-memory vector index using brute-force search over
// normalized vectors (inner product = cosine similarity). Exact top-k, which
// the corpus size (thousands of chunks) makes affordable.
type MemoryIndex struct {
	dimensions int
	modelID    string
	ids        []string
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index for vectors of the given
// dimension produced by modelID.
func NewMemoryIndex(dimensions int, modelID string) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if modelID == "" {
		return nil, fmt.Errorf("modelID must not be empty")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		modelID:    modelID,
		ids:        make([]string, 0),
		vectors:    make([][]float32, 0),
	}, nil
}

// Add appends vectors with the given IDs.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns the top-k vectors by inner product. Ties keep insertion
// order so results are deterministic across identical runs.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return []*VectorResult{}, nil
	}
	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, len(m.ids))
	for i, vec := range m.vectors {
		var dot float64
		for j := 0; j < m.dimensions; j++ {
			dot += float64(query[j] * vec[j])
		}
		scores[i] = scored{pos: i, score: dot}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	result := make([]*VectorResult, k)
	for i := 0; i < k; i++ {
		result[i] = &VectorResult{ID: m.ids[scores[i].pos], Score: scores[i].score}
	}
	return result, nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// ModelID returns the embedding model identity the vectors belong to.
func (m *MemoryIndex) ModelID() string {
	return m.modelID
}

// Save persists the index to path, recording the embedding model identity in
// the artifact header. Directory is created if needed.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write([]byte(artifactMagic)); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, artifactFormatVersion); err != nil {
		return fmt.Errorf("write format version: %w", err)
	}
	if err := writeString(f, m.modelID); err != nil {
		return fmt.Errorf("write model id: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range m.ids {
		if err := writeString(f, id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// LoadMemoryIndex reads an artifact from path and returns a new index.
// The recorded model identity must match modelID; a mismatch returns
// ErrModelMismatch so a stale index is rejected rather than silently loaded.
func LoadMemoryIndex(path, modelID string, dimensions int) (*MemoryIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	magic := make([]byte, len(artifactMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != artifactMagic {
		return nil, fmt.Errorf("not a vector index artifact: %s", path)
	}
	var formatVersion uint32
	if err := binary.Read(f, binary.LittleEndian, &formatVersion); err != nil {
		return nil, fmt.Errorf("read format version: %w", err)
	}
	if formatVersion != artifactFormatVersion {
		return nil, fmt.Errorf("unsupported artifact format version %d", formatVersion)
	}
	recordedModel, err := readString(f)
	if err != nil {
		return nil, fmt.Errorf("read model id: %w", err)
	}
	if recordedModel != modelID {
		return nil, fmt.Errorf("artifact recorded %q, configured %q: %w", recordedModel, modelID, ErrModelMismatch)
	}
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != dimensions {
		return nil, fmt.Errorf("dimension mismatch: file has %d, configured %d", dim, dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}

	m, err := NewMemoryIndex(dimensions, modelID)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, dimensions*4)
	for i := uint32(0); i < n; i++ {
		id, err := readString(f)
		if err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, bytesToFloat32Slice(buf))
	}
	return m, nil
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// CosineSimilarity returns cosine similarity between two normalized vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}
