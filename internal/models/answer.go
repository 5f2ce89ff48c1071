package models

// Citation links a marker used in generated text to its source chunk.
type Citation struct {
	Marker   int    `json:"marker"`
	ChunkID  string `json:"-"`
	SourceID string `json:"source_id"`
	Excerpt  string `json:"excerpt"`
}

// AssembledContext is the budget-bounded selection of chunks handed to the
// generation model. Markers are 1-based and contiguous in inclusion order.
type AssembledContext struct {
	Chunks    []*ScoredChunk
	Citations []Citation
	// Truncated is set when the single highest-scoring chunk exceeded the
	// budget on its own and had to be cut to fit.
	Truncated bool
}

// Empty reports whether no chunks were included.
func (c *AssembledContext) Empty() bool {
	return c == nil || len(c.Chunks) == 0
}

// CitationFor returns the citation for marker, or false when the marker does
// not resolve to an included chunk.
func (c *AssembledContext) CitationFor(marker int) (Citation, bool) {
	if c == nil || marker < 1 || marker > len(c.Citations) {
		return Citation{}, false
	}
	return c.Citations[marker-1], true
}

// Answer is the pipeline output for one query. The caller owns it exclusively;
// the pipeline keeps no reference after returning.
type Answer struct {
	Text      string           `json:"answer"`
	Citations []Citation       `json:"citations"`
	Retrieval *RetrievalResult `json:"-"`
	LatencyMS int64            `json:"latency_ms"`
}
