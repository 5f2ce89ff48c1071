package models

import "fmt"

// MaxQueryLength bounds the accepted question length in bytes.
const MaxQueryLength = 2000

// Turn is a prior conversation turn, role "user" or "assistant".
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// AskQuery is a question with optional prior turns and retrieval options.
type AskQuery struct {
	Query   string `json:"query"`
	History []Turn `json:"history,omitempty"`
	// K overrides the configured top-k when > 0.
	K int `json:"k,omitempty"`
	// CategoryFilter restricts retrieval to one category when set.
	CategoryFilter string `json:"category_filter,omitempty"`
}

// Validate checks the query and normalizes the category filter.
// Returns an error for empty or oversized queries and unknown categories.
func (q *AskQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if len(q.Query) > MaxQueryLength {
		return fmt.Errorf("query exceeds %d bytes", MaxQueryLength)
	}
	if q.CategoryFilter != "" {
		c, err := ParseCategory(q.CategoryFilter)
		if err != nil {
			return err
		}
		q.CategoryFilter = string(c)
	}
	return nil
}
