// Package chunking splits extracted document text into overlapping,
// sentence-aligned chunks suitable for embedding.
package chunking

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	// A sentence ends at . ! or ? followed by whitespace. The punctuation stays
	// with the sentence it terminates.
	sentenceBoundary = regexp.MustCompile(`[.!?][\s\x{0B}\x{85}\p{Z}]+`)
)

// Metadata travels with every chunk into the vector index.
type Metadata struct {
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	Page        int    `json:"page"`
	TotalPages  int    `json:"total_pages"`
	ChunkIndex  int    `json:"chunk_index"`
	ChunkLength int    `json:"chunk_length"`
	UserID      string `json:"user_id"`
}

type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Page is the text of one 1-based page.
type Page struct {
	Number int
	Text   string
}

type Chunker struct {
	chunkSize int
	overlap   int
}

type Option func(*Chunker)

func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 5
	}
	return c
}

func (c *Chunker) ChunkSize() int { return c.chunkSize }
func (c *Chunker) Overlap() int   { return c.overlap }

// Chunk splits text into chunks. When pages are given each page is chunked on its
// own in ascending page order and text is ignored; otherwise text is treated as a
// single page. Chunk indexes are unique within the document.
func (c *Chunker) Chunk(text, documentID, filename string, pages []Page) []Chunk {
	if len(pages) == 0 {
		pages = []Page{{Number: 1, Text: text}}
	} else {
		sorted := make([]Page, len(pages))
		copy(sorted, pages)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })
		pages = sorted
	}

	totalPages := len(pages)
	var chunks []Chunk
	for _, page := range pages {
		base := Metadata{
			DocumentID: documentID,
			Filename:   filename,
			Page:       page.Number,
			TotalPages: totalPages,
		}
		for _, piece := range c.split(Normalize(page.Text)) {
			meta := base
			meta.ChunkIndex = len(chunks)
			meta.ChunkLength = utf8.RuneCountInString(piece)
			chunks = append(chunks, Chunk{Text: piece, Metadata: meta})
		}
	}
	return chunks
}

// Normalize collapses runs of three or more newlines into a blank line.
func Normalize(text string) string {
	return excessNewlines.ReplaceAllString(text, "\n\n")
}

// SplitSentences splits on terminal punctuation followed by whitespace.
func SplitSentences(text string) []string {
	locs := sentenceBoundary.FindAllStringIndex(text, -1)
	sentences := make([]string, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		// punctuation is a single byte
		sentences = append(sentences, text[start:loc[0]+1])
		start = loc[1]
	}
	return append(sentences, text[start:])
}

// split accumulates sentences greedily. When the next sentence would reach the
// chunk size the buffer is emitted and the next one starts with its tail.
func (c *Chunker) split(text string) []string {
	var out []string
	current := ""
	currentLength := 0

	for _, sentence := range SplitSentences(text) {
		sentenceLength := utf8.RuneCountInString(sentence)

		if currentLength+sentenceLength < c.chunkSize {
			current += sentence + " "
			currentLength += sentenceLength
			continue
		}

		if trimmed := strings.TrimSpace(current); trimmed != "" {
			out = append(out, trimmed)
		}
		current = tail(current, c.overlap) + sentence + " "
		currentLength = utf8.RuneCountInString(current)
	}

	if trimmed := strings.TrimSpace(current); trimmed != "" {
		out = append(out, trimmed)
	}
	return out
}

// tail returns the last n characters of s.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
