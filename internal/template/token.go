package template

// TokenKind identifies the type of token found inside a code region.
type TokenKind int

// TokenKind constants for code region tokens.
const (
	TokenString        TokenKind = iota // 'text', """text""", r"text"
	TokenComment                        // # comment
	TokenBlockStart                     // if, for, while, with, try, def, class
	TokenBlockContinue                  // elif, else, except, finally
	TokenEnd                            // standalone end
	TokenRegionEnd                      // }} or %>, optionally preceded by the trim marker
	TokenNewline                        // \n or \r\n
)

func (k TokenKind) String() string {
	switch k {
	case TokenString:
		return "STRING"
	case TokenComment:
		return "COMMENT"
	case TokenBlockStart:
		return "BLOCK_START"
	case TokenBlockContinue:
		return "BLOCK_CONTINUE"
	case TokenEnd:
		return "END"
	case TokenRegionEnd:
		return "REGION_END"
	case TokenNewline:
		return "NEWLINE"
	default:
		return "UNKNOWN"
	}
}

// Token is a single token produced by the scanner.
type Token struct {
	Kind TokenKind
	// Text is the exact source text of the token.
	Text string
	// Trim is set on a TokenRegionEnd carrying the trim marker.
	Trim bool
	// Offset is the byte offset of the token in the template source.
	Offset int
}
