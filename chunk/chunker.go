// Package chunk splits markdown documents into heading-aware,
// token-bounded, overlapping chunks suitable for independent vector
// embedding and retrieval.
//
// Chunking runs in two stages. Stage 1 splits the document into sections
// at ATX headings, ignoring heading markers inside fenced code. Stage 2
// recursively splits any section over the token budget along a fixed
// separator priority list, then injects overlap between adjacent fragments
// and merges undersized ones.
package chunk

import (
	"regexp"
	"strings"
)

// Chunk is one bounded span of a document prepared for embedding.
//
// StartChar/EndChar are byte offsets into the original document. For
// chunks produced by recursive splitting with overlap, Content carries
// duplicated leading text that is not present at StartChar in the source,
// and offsets are located by forward search with a cursor fallback. Do not
// assume document[StartChar:EndChar] == Content for such chunks.
type Chunk struct {
	// Content is the chunk text, possibly prefixed with overlap text from
	// the preceding chunk.
	Content string `json:"content"`

	// HeadingPath is the ordered list of heading titles from the document
	// root to this chunk. Empty for content preceding the first heading.
	HeadingPath []string `json:"heading_path"`

	// HeadingLevel is the level of the chunk's enclosing heading, 1-6.
	// Zero means no enclosing heading.
	HeadingLevel int `json:"heading_level"`

	// TokenCount is the tokenizer's count for Content.
	TokenCount int `json:"token_count"`

	// StartChar is the chunk's starting byte offset in the original
	// document.
	StartChar int `json:"start_char"`

	// EndChar is the chunk's ending byte offset in the original document.
	// Always greater than StartChar.
	EndChar int `json:"end_char"`

	// HasCode is true when Content contains at least one literal
	// triple-backtick sequence. An unclosed fence fragment still counts:
	// the chunk is inside or opens a code region.
	HasCode bool `json:"has_code"`
}

// Config bounds chunk sizes in tokens.
type Config struct {
	// MaxTokens is the budget a chunk should not exceed. A single
	// unbroken token run longer than the budget is passed through as-is
	// rather than rejected.
	MaxTokens int

	// OverlapTokens is how many trailing tokens of each fragment are
	// prepended to the next fragment of the same section. Zero disables
	// overlap.
	OverlapTokens int

	// MinTokens is the size below which adjacent chunks of a section are
	// merged. Best effort, not a guarantee.
	MinTokens int
}

// DefaultConfig returns the chunk sizing used for wiki pages.
func DefaultConfig() Config {
	return Config{
		MaxTokens:     512,
		OverlapTokens: 50,
		MinTokens:     50,
	}
}

// Chunker splits markdown into chunks. Chunking is pure CPU-bound text
// processing; it never suspends.
type Chunker struct {
	config    Config
	tokenizer Tokenizer
}

// New creates a Chunker with the default tiktoken tokenizer.
func New(config Config) (*Chunker, error) {
	tokenizer, err := NewTiktokenTokenizer()
	if err != nil {
		return nil, err
	}
	return NewWithTokenizer(config, tokenizer), nil
}

// NewWithTokenizer creates a Chunker with a custom tokenizer.
func NewWithTokenizer(config Config, tokenizer Tokenizer) *Chunker {
	return &Chunker{config: config, tokenizer: tokenizer}
}

// separators is the recursive-split priority list: paragraph break, line
// break, sentence break, word break.
var separators = []string{"\n\n", "\n", ". ", " "}

// headingPattern matches an ATX heading line: 1-6 leading # characters,
// whitespace, then a non-empty title.
var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*\S)\s*$`)

// Chunk splits content into chunks. The result is empty when content is
// empty or whitespace-only.
func (c *Chunker) Chunk(content string) []Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var chunks []Chunk
	for _, sec := range splitSections(content) {
		chunks = append(chunks, c.chunkSection(content, sec)...)
	}
	return chunks
}

// section is one heading-delimited region of the document.
type section struct {
	start, end int
	path       []string
	level      int
}

// heading is one ATX heading found outside fenced code.
type heading struct {
	offset int
	level  int
	title  string
}

// splitSections performs the stage-1 heading-aware split.
func splitSections(content string) []section {
	headings := findHeadings(content)

	if len(headings) == 0 {
		return []section{{start: 0, end: len(content), level: 0}}
	}

	var sections []section

	// Text before the first heading becomes a level-0 preamble section,
	// only if it contains non-whitespace.
	if strings.TrimSpace(content[:headings[0].offset]) != "" {
		sections = append(sections, section{
			start: 0,
			end:   headings[0].offset,
			level: 0,
		})
	}

	// Heading-path stack keyed by level. Setting a heading at level L
	// overwrites the title at L and discards all deeper levels, so a new
	// sibling resets previously active deeper context.
	var titles [7]string
	for i, h := range headings {
		titles[h.level] = h.title
		for l := h.level + 1; l < len(titles); l++ {
			titles[l] = ""
		}

		var path []string
		for _, t := range titles[1:] {
			if t != "" {
				path = append(path, t)
			}
		}

		end := len(content)
		if i+1 < len(headings) {
			end = headings[i+1].offset
		}
		sections = append(sections, section{
			start: h.offset,
			end:   end,
			path:  path,
			level: h.level,
		})
	}

	return sections
}

// findHeadings scans for ATX headings outside fenced code regions, in
// document order. An odd trailing fence is treated as an unclosed code
// region running to end-of-document.
func findHeadings(content string) []heading {
	var headings []heading
	inFence := false
	offset := 0

	for offset <= len(content) {
		lineEnd := strings.IndexByte(content[offset:], '\n')
		var line string
		if lineEnd < 0 {
			line = content[offset:]
			lineEnd = len(content) - offset
		} else {
			line = content[offset : offset+lineEnd]
		}

		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		} else if !inFence {
			if m := headingPattern.FindStringSubmatch(line); m != nil {
				headings = append(headings, heading{
					offset: offset,
					level:  len(m[1]),
					title:  m[2],
				})
			}
		}

		offset += lineEnd + 1
	}

	return headings
}

// fragment is a stage-2 split unit: the final chunk content (possibly
// overlap-prefixed) plus its located span in the original document.
type fragment struct {
	content    string
	start, end int
}

// chunkSection turns one section into chunks: a single chunk when the
// section fits the budget, otherwise a recursive split with overlap and
// small-chunk merging.
func (c *Chunker) chunkSection(content string, sec section) []Chunk {
	text := content[sec.start:sec.end]

	if c.tokenizer.Count(text) <= c.config.MaxTokens {
		return []Chunk{c.buildChunk(fragment{
			content: text,
			start:   sec.start,
			end:     sec.end,
		}, sec)}
	}

	pieces := c.splitRecursive(text, separators)
	fragments := locateFragments(content, pieces, sec.start)
	fragments = c.applyOverlap(fragments, pieces)
	fragments = c.mergeSmall(fragments)

	chunks := make([]Chunk, 0, len(fragments))
	for _, f := range fragments {
		chunks = append(chunks, c.buildChunk(f, sec))
	}
	return chunks
}

func (c *Chunker) buildChunk(f fragment, sec section) Chunk {
	return Chunk{
		Content:      f.content,
		HeadingPath:  sec.path,
		HeadingLevel: sec.level,
		TokenCount:   c.tokenizer.Count(f.content),
		StartChar:    f.start,
		EndChar:      f.end,
		HasCode:      strings.Contains(f.content, "```"),
	}
}

// splitRecursive splits text along the first separator that produces more
// than one piece, greedily re-merges pieces up to the token budget, and
// recurses into the next separator for any piece still over budget. Text
// that no separator can split is returned as-is; an oversized unbroken
// token run is an accepted edge case, not an error.
//
// Splitting uses SplitAfter so every piece keeps its trailing separator
// and concatenating the returned pieces reproduces text exactly.
func (c *Chunker) splitRecursive(text string, seps []string) []string {
	if c.tokenizer.Count(text) <= c.config.MaxTokens || len(seps) == 0 {
		return []string{text}
	}

	pieces := strings.SplitAfter(text, seps[0])
	// SplitAfter yields a trailing empty piece when text ends with the
	// separator.
	if len(pieces) > 1 && pieces[len(pieces)-1] == "" {
		pieces = pieces[:len(pieces)-1]
	}
	if len(pieces) <= 1 {
		return c.splitRecursive(text, seps[1:])
	}

	var merged []string
	current := ""
	for _, piece := range pieces {
		if current == "" {
			current = piece
			continue
		}
		if c.tokenizer.Count(current+piece) <= c.config.MaxTokens {
			current += piece
			continue
		}
		merged = append(merged, current)
		current = piece
	}
	if current != "" {
		merged = append(merged, current)
	}

	var out []string
	for _, m := range merged {
		if c.tokenizer.Count(m) > c.config.MaxTokens {
			out = append(out, c.splitRecursive(m, seps[1:])...)
		} else {
			out = append(out, m)
		}
	}
	return out
}

// locateFragments records each piece's span in the original document by
// forward search from a running cursor. When a piece cannot be found
// verbatim the cursor position is used as a best-effort fallback start, so
// offsets for recursively-split chunks are approximate rather than exact.
func locateFragments(
	content string,
	pieces []string,
	sectionStart int,
) []fragment {
	fragments := make([]fragment, 0, len(pieces))
	cursor := sectionStart
	for _, piece := range pieces {
		start := cursor
		if idx := strings.Index(content[cursor:], piece); idx >= 0 {
			start = cursor + idx
		}
		end := start + len(piece)
		fragments = append(fragments, fragment{
			content: piece,
			start:   start,
			end:     end,
		})
		cursor = end
	}
	return fragments
}

// applyOverlap prepends the trailing OverlapTokens tokens of each
// preceding piece (decoded back to text) to every fragment except the
// first. Content is intentionally duplicated across chunk boundaries to
// preserve context continuity for retrieval; offsets are left pointing at
// the non-prefixed text.
func (c *Chunker) applyOverlap(
	fragments []fragment,
	pieces []string,
) []fragment {
	if c.config.OverlapTokens <= 0 {
		return fragments
	}
	for i := 1; i < len(fragments); i++ {
		tokens := c.tokenizer.Encode(pieces[i-1])
		if len(tokens) > c.config.OverlapTokens {
			tokens = tokens[len(tokens)-c.config.OverlapTokens:]
		}
		fragments[i].content = c.tokenizer.Decode(tokens) +
			fragments[i].content
	}
	return fragments
}

// mergeSmall walks fragments in order and absorbs undersized neighbors:
// when either the accumulated chunk or the next chunk is below MinTokens
// they are combined. Best effort only: a trailing tiny chunk after the
// last merge decision, or an oversized unsplittable chunk, may still fall
// short of MinTokens.
func (c *Chunker) mergeSmall(fragments []fragment) []fragment {
	if c.config.MinTokens <= 0 || len(fragments) <= 1 {
		return fragments
	}

	var out []fragment
	current := fragments[0]
	for _, next := range fragments[1:] {
		if c.tokenizer.Count(current.content) < c.config.MinTokens ||
			c.tokenizer.Count(next.content) < c.config.MinTokens {
			current = fragment{
				content: current.content + next.content,
				start:   current.start,
				end:     next.end,
			}
			continue
		}
		out = append(out, current)
		current = next
	}
	return append(out, current)
}
