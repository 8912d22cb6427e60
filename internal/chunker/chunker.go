package chunker

import (
	"strings"

	"course_qa_backend/internal/model"
)

const (
	DefaultMaxChunkSize = 1000
	DefaultMinChunkSize = 300
	DefaultOverlap      = 200
)

// separators is the fallback hierarchy for splitting: paragraph breaks,
// then line breaks, then word boundaries, then raw characters.
var separators = []string{"\n\n", "\n", " ", ""}

// Chunker splits document text into overlapping fragments bounded by
// maxSize, then merges undersized leading fragments into their successor.
type Chunker struct {
	maxSize int
	minSize int
	overlap int
}

func New(maxSize, minSize, overlap int) *Chunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	if minSize <= 0 {
		minSize = DefaultMinChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	return &Chunker{maxSize: maxSize, minSize: minSize, overlap: overlap}
}

func NewDefault() *Chunker {
	return New(DefaultMaxChunkSize, DefaultMinChunkSize, DefaultOverlap)
}

// ChunkDocument splits a document's extracted text and returns the chunk
// rows linked to it by doc_id, indexed from zero.
func (c *Chunker) ChunkDocument(doc *model.Document) []model.Chunk {
	texts := c.Split(doc.ExtractedText)

	chunks := make([]model.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, model.Chunk{
			ChunkID:    model.ChunkID(doc.DocID, i),
			DocID:      doc.DocID,
			ChunkText:  text,
			ChunkIndex: i,
		})
	}
	return chunks
}

// Split produces the ordered chunk texts for the given input. Empty input
// yields nothing; input below the minimum size yields exactly one chunk
// containing the text unaltered.
func (c *Chunker) Split(text string) []string {
	if len(text) == 0 {
		return nil
	}
	if len(text) < c.minSize {
		return []string{text}
	}

	pieces := c.splitRecursive(text, separators)
	return c.mergeSmall(pieces)
}

// splitRecursive walks the separator hierarchy, splitting on the first
// separator present in the text and recursing into any oversized piece
// with the remaining separators.
func (c *Chunker) splitRecursive(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}

	splits := splitOn(text, sep)

	var final []string
	var good []string
	for _, s := range splits {
		if len(s) <= c.maxSize {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.mergeSplits(good, sep)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, s)
		} else {
			final = append(final, c.splitRecursive(s, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, c.mergeSplits(good, sep)...)
	}
	return final
}

// mergeSplits greedily packs consecutive splits into fragments up to
// maxSize, sliding the window so consecutive fragments share up to
// overlap characters of trailing/leading text.
func (c *Chunker) mergeSplits(splits []string, sep string) []string {
	sepLen := len(sep)

	var docs []string
	var current []string
	total := 0

	for _, s := range splits {
		l := len(s)
		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}
		if total+l+extra > c.maxSize && len(current) > 0 {
			if doc := joinSplits(current, sep); doc != "" {
				docs = append(docs, doc)
			}
			// Drop leading pieces until the carried-over tail fits the
			// overlap budget and leaves room for the incoming piece.
			for total > c.overlap || (total+l+extra > c.maxSize && total > 0) {
				total -= len(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, s)
		total += l
	}
	if doc := joinSplits(current, sep); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// mergeSmall runs the post-split pass once, left to right, carrying a
// single pending buffer: a fragment shorter than minSize joins its
// successor with a newline when the merge stays within maxSize, and is
// flushed as-is otherwise.
func (c *Chunker) mergeSmall(pieces []string) []string {
	var merged []string
	buffer := ""
	for _, piece := range pieces {
		if buffer == "" {
			buffer = piece
			continue
		}
		if len(buffer) < c.minSize && len(buffer)+len(piece) <= c.maxSize {
			buffer = buffer + "\n" + piece
		} else {
			merged = append(merged, buffer)
			buffer = piece
		}
	}
	if buffer != "" {
		merged = append(merged, buffer)
	}
	return merged
}

func splitOn(text, sep string) []string {
	var parts []string
	if sep == "" {
		for _, r := range text {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(text, sep)
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinSplits(parts []string, sep string) string {
	return strings.TrimSpace(strings.Join(parts, sep))
}
