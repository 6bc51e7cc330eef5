package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Page is the extracted text of one PDF page. Number is 1-based.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Chunk is a bounded span of document text, the unit of embedding and retrieval.
type Chunk struct {
	ID        string    `json:"id"`
	Namespace Namespace `json:"namespace"`
	UploadID  string    `json:"upload_id"`
	Source    string    `json:"source"`   // original file name
	Page      int       `json:"page"`     // 0 when unknown
	Position  int       `json:"position"` // order within the document
	Content   string    `json:"content"`
}

// ChunkID is the chunk identity used for idempotent upserts.
func ChunkID(ns Namespace, uploadID string, position int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%s/%d", ns, uploadID, position)))
	return hex.EncodeToString(sum[:16])
}

// EmbeddedChunk is a chunk with its vector, ready for the index.
type EmbeddedChunk struct {
	Chunk  *Chunk    `json:"chunk"`
	Vector []float32 `json:"vector"`
}

// ScoredChunk is a search hit.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}
