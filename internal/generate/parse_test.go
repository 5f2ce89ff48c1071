package generate

import (
	"reflect"
	"testing"

	"github.com/fitcoach/kotae/internal/models"
)

func TestExtractMarkers(t *testing.T) {
	tests := []struct {
		text string
		want []int
	}{
		{"I recommend 1.6-2.2 g/kg/day [1]. Spread it across meals [2].", []int{1, 2}},
		{"Volume matters [2], and so does intensity [2] and recovery [1].", []int{2, 1}},
		{"No citations here.", nil},
		{"Array access a[0] is ignored, [12] counts.", []int{12}},
	}
	for _, tt := range tests {
		if got := ExtractMarkers(tt.text); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ExtractMarkers(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestResolveCitations(t *testing.T) {
	assembled := &models.AssembledContext{
		Chunks: []*models.ScoredChunk{
			{Chunk: &models.Chunk{ID: "a#0", SourceID: "src-a"}},
			{Chunk: &models.Chunk{ID: "b#0", SourceID: "src-b"}},
		},
		Citations: []models.Citation{
			{Marker: 1, ChunkID: "a#0", SourceID: "src-a"},
			{Marker: 2, ChunkID: "b#0", SourceID: "src-b"},
		},
	}

	resolved, dropped := ResolveCitations("per the evidence [1], and also [7].", assembled)
	if len(resolved) != 1 || resolved[0].SourceID != "src-a" {
		t.Errorf("resolved = %+v", resolved)
	}
	if len(dropped) != 1 || dropped[0] != 7 {
		t.Errorf("dropped = %v", dropped)
	}
}
