package template

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	blockStartKeywords    = []string{"if", "for", "while", "with", "try", "def", "class"}
	blockContinueKeywords = []string{"elif", "else", "except", "finally"}
)

// stringPrefixes are the one-letter string kinds allowed before a quote.
const stringPrefixes = "urbURB"

// scanner recognizes tokens inside a single code region.
// It holds no per-parse state and may be shared.
type scanner struct {
	end  string // end marker of the region being scanned
	trim string
}

// next finds the leftmost token in the unconsumed source. It returns the code
// preceding the token and advances the cursor past the token. ok is false
// when the source is exhausted without a token; the cursor is not moved.
func (s *scanner) next(c *cursor) (code string, tok Token, ok bool) {
	rest := c.rest()
	for i := 0; i < len(rest); i++ {
		t, n, matched := s.match(rest, i)
		if !matched {
			continue
		}
		t.Text = rest[i : i+n]
		t.Offset = c.off + i
		c.advance(i + n)
		return rest[:i], t, true
	}
	return "", Token{}, false
}

// match tries every token family at rest[i], in priority order.
// Keywords are only recognized at the start of the unconsumed source.
func (s *scanner) match(rest string, i int) (Token, int, bool) {
	at := rest[i:]

	if n := scanString(at); n > 0 {
		return Token{Kind: TokenString}, n, true
	}

	if at[0] == '#' {
		n := strings.IndexByte(at, '\n')
		if n < 0 {
			n = len(at)
		}
		return Token{Kind: TokenComment}, n, true
	}

	if i == 0 {
		if kind, n, ok := scanKeyword(at); ok {
			return Token{Kind: kind}, n, true
		}
		if n, ok := s.scanEnd(at); ok {
			return Token{Kind: TokenEnd}, n, true
		}
	}
	if at[0] == ';' {
		if n, ok := s.scanEnd(at[1:]); ok {
			return Token{Kind: TokenEnd}, n + 1, true
		}
	}

	if strings.HasPrefix(at, s.trim) && strings.HasPrefix(at[len(s.trim):], s.end) {
		return Token{Kind: TokenRegionEnd, Trim: true}, len(s.trim) + len(s.end), true
	}
	if strings.HasPrefix(at, s.end) {
		return Token{Kind: TokenRegionEnd}, len(s.end), true
	}

	if at[0] == '\n' {
		return Token{Kind: TokenNewline}, 1, true
	}
	if strings.HasPrefix(at, "\r\n") {
		return Token{Kind: TokenNewline}, 2, true
	}

	return Token{}, 0, false
}

// scanEnd matches a standalone end keyword: blanks, "end", blanks, and then
// end of text, a statement separator, a comment, a line break, or the end
// marker.
func (s *scanner) scanEnd(at string) (int, bool) {
	j := skipBlanks(at, 0)
	if !strings.HasPrefix(at[j:], "end") {
		return 0, false
	}
	j = skipBlanks(at, j+len("end"))

	follow := at[j:]
	switch {
	case follow == "", follow[0] == ';', follow[0] == '#', follow[0] == '\r', follow[0] == '\n':
	case strings.HasPrefix(follow, s.end), strings.HasPrefix(follow, s.trim+s.end):
	default:
		return 0, false
	}
	return j, true
}

// scanKeyword matches leading blanks followed by a block keyword.
func scanKeyword(at string) (TokenKind, int, bool) {
	j := skipBlanks(at, 0)
	word := at[j:]
	for _, kw := range blockStartKeywords {
		if hasWord(word, kw) {
			return TokenBlockStart, j + len(kw), true
		}
	}
	for _, kw := range blockContinueKeywords {
		if hasWord(word, kw) {
			return TokenBlockContinue, j + len(kw), true
		}
	}
	return 0, 0, false
}

// scanString returns the length of the quoted string literal at the start
// of at, or 0 if there is none.
func scanString(at string) int {
	j := 0
	if len(at) > 1 && strings.IndexByte(stringPrefixes, at[0]) >= 0 {
		j = 1
	}
	if at[j] != '\'' && at[j] != '"' {
		return 0
	}

	body := at[j:]
	q := body[0]
	triple := strings.Repeat(string(q), 3)

	switch {
	case strings.HasPrefix(body, triple+triple):
		return j + 6
	case len(body) >= 2 && body[1] == q && (len(body) == 2 || body[2] != q):
		return j + 2
	}

	if len(body) > 1 && body[1] != q {
		if n := singleQuotedLen(body, q); n > 0 {
			return j + n
		}
	}
	if strings.HasPrefix(body, triple) {
		if n := tripleQuotedLen(body, triple); n > 0 {
			return j + n
		}
	}
	return 0
}

// singleQuotedLen scans 'text' where text may span lines but a backslash
// must escape a character on the same line.
func singleQuotedLen(body string, q byte) int {
	for k := 1; k < len(body); k++ {
		switch body[k] {
		case '\\':
			if k+1 >= len(body) || body[k+1] == '\n' {
				return 0
			}
			k++
		case q:
			return k + 1
		}
	}
	return 0
}

// tripleQuotedLen scans '''text''' with at least one character of text.
func tripleQuotedLen(body, triple string) int {
	for k := len(triple); k < len(body); k++ {
		if k > len(triple) && strings.HasPrefix(body[k:], triple) {
			return k + len(triple)
		}
		if body[k] == '\\' {
			if k+1 >= len(body) || body[k+1] == '\n' {
				return 0
			}
			k++
		}
	}
	return 0
}

func skipBlanks(s string, j int) int {
	for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
		j++
	}
	return j
}

// hasWord reports whether s starts with word followed by a word boundary.
func hasWord(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	if len(s) == len(word) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[len(word):])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
