package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jdkato/prose/v2"
)

// Chunker splits extracted document text into overlapping word windows
// sized for the embedding model's context
type Chunker struct {
	chunkSize int // words per chunk
	overlap   int // words shared between adjacent chunks
	keywords  int // keywords extracted per chunk
}

// NewChunker creates a chunker with the given window and overlap in words
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 200
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		keywords:  5,
	}
}

// TextChunk is one window of document text plus extracted keywords
type TextChunk struct {
	Text     string
	Index    int
	Keywords []string
}

// Split breaks text into overlapping chunks. Empty or whitespace-only
// input yields no chunks.
func (c *Chunker) Split(text string) []TextChunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.chunkSize - c.overlap
	var chunks []TextChunk
	for start := 0; start < len(words); start += step {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}

		chunkText := strings.Join(words[start:end], " ")
		chunks = append(chunks, TextChunk{
			Text:     chunkText,
			Index:    len(chunks),
			Keywords: c.extractKeywords(chunkText),
		})

		if end == len(words) {
			break
		}
	}

	return chunks
}

// extractKeywords pulls the most frequent named entities and nouns from
// a chunk so searches can filter on them
func (c *Chunker) extractKeywords(text string) []string {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil
	}

	counts := make(map[string]int)
	for _, ent := range doc.Entities() {
		counts[strings.ToLower(ent.Text)] += 2
	}
	for _, tok := range doc.Tokens() {
		if strings.HasPrefix(tok.Tag, "NN") && len(tok.Text) > 2 {
			counts[strings.ToLower(tok.Text)]++
		}
	}

	type scored struct {
		word  string
		count int
	}
	ranked := make([]scored, 0, len(counts))
	for w, n := range counts {
		ranked = append(ranked, scored{w, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	limit := c.keywords
	if limit > len(ranked) {
		limit = len(ranked)
	}
	keywords := make([]string, 0, limit)
	for _, s := range ranked[:limit] {
		keywords = append(keywords, s.word)
	}
	return keywords
}

// KeywordString joins keywords for storage in chunk metadata
func KeywordString(keywords []string) string {
	return strings.Join(keywords, ",")
}

// ChunkID builds a deterministic chunk identifier from document id and index
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_%d", documentID, index)
}
