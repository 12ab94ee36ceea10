package services

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

type TextChunker interface {
	Chunk(text string) []string
}

type textChunker struct {
	size    int
	overlap int
}

func NewTextChunker(size, overlap int) TextChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &textChunker{size: size, overlap: overlap}
}

// Chunk packs paragraphs, then sentences, then raw runes into windows of at most size runes,
// seeding each new window with the tail of the previous one.
func (tc *textChunker) Chunk(text string) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0
	// fresh is false while current only holds the tail carried over from the previous chunk.
	fresh := false

	reset := func() {
		current.Reset()
		currentLen = 0
	}

	flush := func() {
		chunk := current.String()
		chunks = append(chunks, chunk)
		reset()
		fresh = false

		if tail := lastNRunes(chunk, tc.overlap); tail != "" {
			current.WriteString(tail)
			currentLen = utf8.RuneCountInString(tail)
		}
	}

	add := func(piece, sep string) {
		pieceLen := utf8.RuneCountInString(piece)
		sepLen := utf8.RuneCountInString(sep)
		if currentLen > 0 && currentLen+sepLen+pieceLen > tc.size {
			if fresh {
				flush()
			}
			if currentLen > 0 && currentLen+sepLen+pieceLen > tc.size {
				reset()
			}
		}
		if currentLen > 0 {
			current.WriteString(sep)
			currentLen += sepLen
		}
		current.WriteString(piece)
		currentLen += pieceLen
		fresh = true
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if utf8.RuneCountInString(para) <= tc.size {
			add(para, "\n\n")
			continue
		}

		for _, sentence := range splitIntoSentences(para) {
			for _, piece := range splitRunes(sentence, tc.size-tc.overlap-1) {
				add(piece, " ")
			}
		}
	}

	if fresh {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitIntoSentences splits after '.', '!' and '?' while keeping the punctuation.
func splitIntoSentences(text string) []string {
	var result []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				result = append(result, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		result = append(result, s)
	}
	return result
}

func splitRunes(text string, n int) []string {
	if n <= 0 {
		n = 1
	}
	runes := []rune(text)
	if len(runes) <= n {
		return []string{text}
	}
	var parts []string
	for len(runes) > 0 {
		end := n
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[:end]))
		runes = runes[end:]
	}
	return parts
}

func lastNRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
