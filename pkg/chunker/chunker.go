package chunker

import (
	"strings"
	"unicode/utf8"
)

type Chunker interface {
	Chunk(text string, opts ChunkOptions) []TextChunk
}

type ChunkOptions struct {
	ChunkSize    int // target chunk size in characters
	ChunkOverlap int // overlap between consecutive chunks
}

type TextChunk struct {
	Content string
	Index   int
}

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// Separator priority: paragraph, line, word, then single characters.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

type recursiveChunker struct{}

func New() Chunker {
	return &recursiveChunker{}
}

// Chunk splits text into overlapping pieces of at most ChunkSize runes,
// breaking at the earliest separator that keeps pieces within the
// target. Chunks are never trimmed, so concatenating them with overlaps
// removed yields the original text.
func (c *recursiveChunker) Chunk(text string, opts ChunkOptions) []TextChunk {
	if text == "" {
		return nil
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1000
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}
	if opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = opts.ChunkSize - 1
	}

	pieces := splitRecursive(text, defaultSeparators, opts)

	chunks := make([]TextChunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = TextChunk{Content: p, Index: i}
	}
	return chunks
}

func splitRecursive(text string, separators []string, opts ChunkOptions) []string {
	if utf8.RuneCountInString(text) <= opts.ChunkSize {
		return []string{text}
	}

	sep, rest := pickSeparator(text, separators)
	splits := splitKeepSeparator(text, sep)

	var final []string
	var pending []string
	for _, s := range splits {
		if utf8.RuneCountInString(s) <= opts.ChunkSize {
			pending = append(pending, s)
			continue
		}
		if len(pending) > 0 {
			final = append(final, mergeSplits(pending, opts)...)
			pending = nil
		}
		// Piece still too large; break it down with the next separator.
		final = append(final, splitRecursive(s, rest, opts)...)
	}
	if len(pending) > 0 {
		final = append(final, mergeSplits(pending, opts)...)
	}
	return final
}

// pickSeparator returns the first separator occurring in text plus the
// lower-priority separators left for recursion.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, s := range separators {
		if s == "" {
			return "", nil
		}
		if strings.Contains(text, s) {
			return s, separators[i+1:]
		}
	}
	return "", nil
}

// splitKeepSeparator splits text so that each piece after the first
// starts with the separator. Joining the pieces back with no glue
// reproduces the input exactly.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i == 0 {
			if p != "" {
				out = append(out, p)
			}
			continue
		}
		out = append(out, sep+p)
	}
	if len(out) == 0 {
		out = append(out, text)
	}
	return out
}

// mergeSplits packs small pieces into chunks of at most ChunkSize runes,
// carrying the last ChunkOverlap runes of each chunk into the next.
func mergeSplits(splits []string, opts ChunkOptions) []string {
	var chunks []string
	var window []string
	total := 0

	for _, s := range splits {
		n := utf8.RuneCountInString(s)
		if total+n > opts.ChunkSize && len(window) > 0 {
			chunks = append(chunks, strings.Join(window, ""))
			// Slide the window down to the overlap budget.
			for total > opts.ChunkOverlap || (total+n > opts.ChunkSize && total > 0) {
				total -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, s)
		total += n
	}
	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, ""))
	}
	return chunks
}
