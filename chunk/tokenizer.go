package chunk

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer is the subword tokenizer the chunker sizes chunks with. Any
// implementation is substitutable as long as Decode(Encode(text)) == text.
type Tokenizer interface {
	// Count returns the number of tokens in text.
	Count(text string) int

	// Encode converts text to token IDs.
	Encode(text string) []int

	// Decode converts token IDs back to text.
	Decode(tokens []int) string
}

// DefaultEncoding is the tiktoken encoding used by [NewTiktokenTokenizer].
const DefaultEncoding = "cl100k_base"

// TiktokenTokenizer implements Tokenizer on top of tiktoken's BPE
// encodings.
type TiktokenTokenizer struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenTokenizer creates a tokenizer using [DefaultEncoding].
func NewTiktokenTokenizer() (*TiktokenTokenizer, error) {
	return NewTiktokenTokenizerWithEncoding(DefaultEncoding)
}

// NewTiktokenTokenizerWithEncoding creates a tokenizer using the named
// tiktoken encoding (e.g. "cl100k_base", "o200k_base").
func NewTiktokenTokenizerWithEncoding(
	name string,
) (*TiktokenTokenizer, error) {
	encoding, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %s: %w", name, err)
	}
	return &TiktokenTokenizer{encoding: encoding}, nil
}

// Count implements Tokenizer.
func (t *TiktokenTokenizer) Count(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// Encode implements Tokenizer.
func (t *TiktokenTokenizer) Encode(text string) []int {
	return t.encoding.Encode(text, nil, nil)
}

// Decode implements Tokenizer.
func (t *TiktokenTokenizer) Decode(tokens []int) string {
	return t.encoding.Decode(tokens)
}

// Compile-time check.
var _ Tokenizer = (*TiktokenTokenizer)(nil)
