package format

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q", t.text)
}

// operators ordered longest first so "===" wins over "==".
var operators = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||",
	"+", "-", "*", "/", "%", "<", ">", "!", "?", ":", "(", ")", ",", ".",
}

type lexer struct {
	src string
	pos int
}

func lex(src string) ([]token, error) {
	lx := &lexer{src: src}
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) peek() rune {
	if lx.pos >= len(lx.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
	return r
}

func (lx *lexer) next() (token, error) {
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		lx.pos += size
	}
	start := lx.pos
	r := lx.peek()
	switch {
	case r == -1:
		return token{kind: tokEOF, pos: start}, nil
	case r >= '0' && r <= '9':
		return lx.number(), nil
	case r == '\'' || r == '"':
		return lx.str(r)
	case r == '_' || r == '$' || unicode.IsLetter(r):
		for {
			r := lx.peek()
			if r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r) {
				lx.pos += utf8.RuneLen(r)
				continue
			}
			break
		}
		return token{kind: tokIdent, text: lx.src[start:lx.pos], pos: start}, nil
	}
	for _, op := range operators {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.pos += len(op)
			return token{kind: tokOp, text: op, pos: start}, nil
		}
	}
	return token{}, fmt.Errorf("unexpected character %q at %d", r, start)
}

func (lx *lexer) number() token {
	start := lx.pos
	seenDot := false
	for {
		r := lx.peek()
		if r >= '0' && r <= '9' {
			lx.pos++
			continue
		}
		if r == '.' && !seenDot && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] >= '0' && lx.src[lx.pos+1] <= '9' {
			seenDot = true
			lx.pos++
			continue
		}
		break
	}
	return token{kind: tokNumber, text: lx.src[start:lx.pos], pos: start}
}

func (lx *lexer) str(quote rune) (token, error) {
	start := lx.pos
	lx.pos++
	var b strings.Builder
	for {
		if lx.pos >= len(lx.src) {
			return token{}, fmt.Errorf("unterminated string at %d", start)
		}
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		lx.pos += size
		switch {
		case r == quote:
			return token{kind: tokString, text: b.String(), pos: start}, nil
		case r == '\\' && lx.pos < len(lx.src):
			esc, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
			lx.pos += size
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(r)
		}
	}
}
