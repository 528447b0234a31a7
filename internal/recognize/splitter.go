// Package recognize interprets the merged output stream of the speech
// recognition tool.
//
// The tool writes complete log lines terminated by "\n" or "\r\n" and
// ephemeral progress updates terminated by a lone "\r". Output arrives in
// arbitrary chunk boundaries, so the splitter keeps partial state between
// feeds, including a carriage return whose classification depends on the
// next byte.
package recognize

// TokenKind distinguishes the two stream record types.
type TokenKind int

const (
	// TokenLog is a complete log line.
	TokenLog TokenKind = iota
	// TokenProgress is an ephemeral progress update that overwrites the
	// previous one.
	TokenProgress
)

// Token is one decoded stream record.
type Token struct {
	Kind TokenKind
	Text string
}

// Splitter converts raw output chunks into log and progress tokens.
// The zero value is ready to use.
type Splitter struct {
	buf       []byte
	crPending bool
}

// Feed consumes one raw chunk and returns the tokens completed by it.
// A carriage return at a chunk boundary is held until the next byte
// decides whether it belongs to a "\r\n" line ending. Empty log lines are
// dropped; an empty progress token is forwarded and means the progress
// display should reset.
func (s *Splitter) Feed(chunk []byte) []Token {
	var tokens []Token
	for _, b := range chunk {
		if s.crPending {
			s.crPending = false
			if b == '\n' {
				tokens = s.emitLog(tokens)
				continue
			}
			tokens = s.emitProgress(tokens)
		}
		switch b {
		case '\n':
			tokens = s.emitLog(tokens)
		case '\r':
			s.crPending = true
		default:
			s.buf = append(s.buf, b)
		}
	}
	return tokens
}

// Flush returns any trailing partial line as a log token. Call it once the
// stream has ended.
func (s *Splitter) Flush() []Token {
	s.crPending = false
	return s.emitLog(nil)
}

func (s *Splitter) emitLog(tokens []Token) []Token {
	if len(s.buf) == 0 {
		return tokens
	}
	tokens = append(tokens, Token{Kind: TokenLog, Text: string(s.buf)})
	s.buf = s.buf[:0]
	return tokens
}

func (s *Splitter) emitProgress(tokens []Token) []Token {
	tokens = append(tokens, Token{Kind: TokenProgress, Text: string(s.buf)})
	s.buf = s.buf[:0]
	return tokens
}
