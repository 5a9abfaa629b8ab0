package template

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parser turns template source into a Program.
// A Parser is immutable; every Parse call runs on fresh state, so a single
// Parser may be shared across goroutines.
type Parser struct {
	cfg    Config
	inline scanner
	block  scanner
}

var defaultParser = mustNewParser(DefaultConfig())

// NewParser creates a parser for the given delimiters. Empty fields take
// their default value.
func NewParser(cfg Config) (*Parser, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Parser{
		cfg:    cfg,
		inline: scanner{end: cfg.InlineEnd, trim: cfg.Trim},
		block:  scanner{end: cfg.BlockEnd, trim: cfg.Trim},
	}, nil
}

func mustNewParser(cfg Config) *Parser {
	p, err := NewParser(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// Config returns the delimiters the parser was built with.
func (p *Parser) Config() Config { return p.cfg }

// ParseString parses src with the default delimiters.
// The file name is only used in diagnostics.
func ParseString(src, file string) (*Program, error) {
	return defaultParser.Parse(src, file)
}

// Parse parses src into a Program. The file name is only used in diagnostics.
func (p *Parser) Parse(src, file string) (*Program, error) {
	st := &parseState{
		p:    p,
		cur:  newCursor(src),
		prog: &Program{Source: src, File: file},
	}
	if err := st.run(); err != nil {
		return nil, err
	}
	return st.prog, nil
}

// startMatch describes a region start marker found in the text.
type startMatch struct {
	start   int // offset of the match, including any escape
	end     int // offset just past the marker, trim and trailing whitespace
	marker  string
	escaped bool
	inline  bool
	trim    bool
}

// findStart locates the leftmost region start marker in rest.
// The inline marker is tried before the block marker.
func (p *Parser) findStart(rest string) (startMatch, bool) {
	for i := 0; i < len(rest); i++ {
		j, escaped := i, false
		if strings.HasPrefix(rest[i:], p.cfg.Escape) {
			if k := i + len(p.cfg.Escape); p.startsRegion(rest[k:]) {
				j, escaped = k, true
			}
		}

		var k int
		m := startMatch{start: i, escaped: escaped}
		switch {
		case strings.HasPrefix(rest[j:], p.cfg.InlineStart):
			m.inline = true
			k = j + len(p.cfg.InlineStart)
		case strings.HasPrefix(rest[j:], p.cfg.BlockStart):
			k = j + len(p.cfg.BlockStart)
		default:
			continue
		}
		if strings.HasPrefix(rest[k:], p.cfg.Trim) {
			m.trim = true
			k += len(p.cfg.Trim)
		}
		k = skipSpace(rest, k)
		m.end = k
		m.marker = rest[j:k]
		return m, true
	}
	return startMatch{}, false
}

func (p *Parser) startsRegion(s string) bool {
	return strings.HasPrefix(s, p.cfg.InlineStart) || strings.HasPrefix(s, p.cfg.BlockStart)
}

// parseState is the mutable state of a single Parse call.
type parseState struct {
	p    *Parser
	cur  *cursor
	prog *Program

	text      []string
	textStart int
	rstrip    bool
	lstrip    bool

	code      []string
	indentCur int
	indentMod int
}

func (st *parseState) run() error {
	for {
		rest := st.cur.rest()
		m, ok := st.p.findStart(rest)
		if !ok {
			break
		}
		st.appendText(st.cur.off, rest[:m.start])
		regionStart := st.cur.off + m.start
		st.cur.advance(m.end)

		if m.escaped {
			st.appendText(regionStart, m.marker)
			continue
		}
		if m.trim {
			st.rstrip = true
		}
		st.flushText()

		sc := &st.p.block
		if m.inline {
			sc = &st.p.inline
		}
		if err := st.parseRegion(sc, m.inline, regionStart); err != nil {
			return err
		}
	}

	st.appendText(st.cur.off, st.cur.rest())
	st.cur.advance(len(st.cur.rest()))
	st.flushText()
	return nil
}

// parseRegion consumes one code region up to and including its end marker.
func (st *parseState) parseRegion(sc *scanner, inline bool, start int) error {
	st.code = st.code[:0]
	lineStart := start
	isControl := false

	for {
		code, tok, ok := sc.next(st.cur)
		if !ok {
			return NewUnterminatedCodeBlockError(st.prog.Position(start), start, sc.end)
		}
		st.code = append(st.code, code)

		// A keyword after other code on the same line is plain code,
		// as in `x if c else y`.
		if (tok.Kind == TokenBlockStart || tok.Kind == TokenBlockContinue) &&
			strings.TrimSpace(strings.Join(st.code, "")) != "" {
			st.code = append(st.code, tok.Text)
			continue
		}

		switch tok.Kind {
		case TokenString:
			st.code = append(st.code, tok.Text)

		case TokenComment:
			comment := strings.TrimRightFunc(tok.Text, unicode.IsSpace)
			if body, found := strings.CutSuffix(comment, sc.end); found {
				// The comment swallowed the end marker.
				body, trim := strings.CutSuffix(body, sc.trim)
				if !inline {
					st.code = append(st.code, body)
				}
				st.endRegion(inline, isControl, trim, lineStart)
				return nil
			}
			if !inline {
				st.code = append(st.code, comment)
			}

		case TokenBlockStart:
			st.code = append(st.code, tok.Text)
			isControl = true
			if inline {
				st.indentMod++
			}

		case TokenBlockContinue:
			st.code = append(st.code, tok.Text)
			isControl = true
			if inline {
				st.indentCur = max(st.indentCur-1, 0)
				st.indentMod++
			}

		case TokenEnd:
			isControl = true
			if inline {
				st.indentMod--
			}

		case TokenRegionEnd:
			st.endRegion(inline, isControl, tok.Trim, lineStart)
			return nil

		case TokenNewline:
			if inline {
				continue
			}
			st.writeLine(OpStatement, strings.TrimRightFunc(strings.Join(st.code, ""), unicode.IsSpace), lineStart)
			st.code = st.code[:0]
			lineStart = tok.Offset + len(tok.Text)
			isControl = false
		}
	}
}

func (st *parseState) endRegion(inline, isControl, trim bool, offset int) {
	code := strings.Join(st.code, "")
	st.code = st.code[:0]

	if inline {
		code = strings.TrimSpace(code)
		switch {
		case isControl:
			st.writeLine(OpStatement, code, offset)
		case code != "":
			st.writeLine(OpExpression, code, offset)
		}
	} else {
		st.writeLine(OpStatement, strings.TrimRightFunc(code, unicode.IsSpace), offset)
	}

	if trim {
		st.lstrip = true
	}
}

// writeLine appends a non-empty instruction at the current depth and then
// applies the pending depth change.
func (st *parseState) writeLine(kind OpKind, text string, offset int) {
	if text != "" {
		st.prog.Instructions = append(st.prog.Instructions, Instruction{
			Kind:   kind,
			Text:   text,
			Indent: st.indentCur,
			Offset: offset,
		})
	}
	st.indentCur = max(st.indentCur+st.indentMod, 0)
	st.indentMod = 0
}

func (st *parseState) appendText(offset int, s string) {
	if s == "" {
		return
	}
	if len(st.text) == 0 {
		st.textStart = offset
	}
	st.text = append(st.text, s)
}

// flushText emits the buffered literal text, honoring pending trims.
func (st *parseState) flushText() {
	text := strings.Join(st.text, "")
	st.text = st.text[:0]

	if st.rstrip {
		text = strings.TrimRightFunc(text, unicode.IsSpace)
		st.rstrip = false
	}
	if st.lstrip {
		n := len(text)
		text = strings.TrimLeftFunc(text, unicode.IsSpace)
		st.textStart += n - len(text)
		st.lstrip = false
	}
	if text != "" {
		st.writeLine(OpLiteral, text, st.textStart)
	}
}

// skipSpace advances past Unicode whitespace starting at s[j].
func skipSpace(s string, j int) int {
	for j < len(s) {
		r, n := utf8.DecodeRuneInString(s[j:])
		if !unicode.IsSpace(r) {
			break
		}
		j += n
	}
	return j
}
