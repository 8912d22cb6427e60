package model

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID builds a prefixed identifier such as "doc_5f3a..." so entity IDs
// stay readable in logs and in the retrieval trail.
func NewID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.New().String())
}

// ChunkID derives the identifier of the chunk at the given position within
// a document. The doc_id prefix keeps it globally unique while the index
// suffix eases debugging.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", docID, index)
}
