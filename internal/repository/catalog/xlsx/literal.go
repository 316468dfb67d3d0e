package xlsx

import (
	"fmt"
	"strings"
	"unicode"
)

// The source spreadsheet is produced by a Python exporter that writes list and
// dict cells as Python literals: ['мёд', 'карамель'], {'Партия:': '2023'}.
// These are not JSON (single quotes, True/None), so cells are decoded with a
// small purpose-built parser instead of encoding/json. Only string elements
// are expected; anything else is a format error.

type literalParser struct {
	src []rune
	pos int
}

// parseStringList decodes a Python list literal of strings.
func parseStringList(s string) ([]string, error) {
	p := &literalParser{src: []rune(s)}
	p.skipSpace()
	if !p.consume('[') {
		return nil, fmt.Errorf("expected '[' at position %d", p.pos)
	}

	var out []string
	p.skipSpace()
	if p.consume(']') {
		return out, p.expectEnd()
	}
	for {
		v, err := p.parseString()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		if p.consume(',') {
			p.skipSpace()
			if p.consume(']') {
				return out, p.expectEnd()
			}
			continue
		}
		if p.consume(']') {
			return out, p.expectEnd()
		}
		return nil, fmt.Errorf("expected ',' or ']' at position %d", p.pos)
	}
}

// parseStringMap decodes a Python dict literal with string keys and values.
func parseStringMap(s string) (map[string]string, error) {
	p := &literalParser{src: []rune(s)}
	p.skipSpace()
	if !p.consume('{') {
		return nil, fmt.Errorf("expected '{' at position %d", p.pos)
	}

	out := make(map[string]string)
	p.skipSpace()
	if p.consume('}') {
		return out, p.expectEnd()
	}
	for {
		k, err := p.parseString()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.consume(':') {
			return nil, fmt.Errorf("expected ':' at position %d", p.pos)
		}
		p.skipSpace()
		v, err := p.parseString()
		if err != nil {
			return nil, err
		}
		out[k] = v
		p.skipSpace()
		if p.consume(',') {
			p.skipSpace()
			if p.consume('}') {
				return out, p.expectEnd()
			}
			continue
		}
		if p.consume('}') {
			return out, p.expectEnd()
		}
		return nil, fmt.Errorf("expected ',' or '}' at position %d", p.pos)
	}
}

func (p *literalParser) parseString() (string, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("unexpected end of literal")
	}
	quote := p.src[p.pos]
	if quote != '\'' && quote != '"' {
		return "", fmt.Errorf("expected quoted string at position %d", p.pos)
	}
	p.pos++

	var b strings.Builder
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		switch ch {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", fmt.Errorf("unterminated escape at position %d", p.pos)
			}
			esc := p.src[p.pos]
			switch esc {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			default:
				b.WriteRune(esc)
			}
			p.pos++
		default:
			b.WriteRune(ch)
			p.pos++
		}
	}
	return "", fmt.Errorf("unterminated string literal")
}

func (p *literalParser) consume(ch rune) bool {
	if p.pos < len(p.src) && p.src[p.pos] == ch {
		p.pos++
		return true
	}
	return false
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *literalParser) expectEnd() error {
	p.skipSpace()
	if p.pos != len(p.src) {
		return fmt.Errorf("trailing data at position %d", p.pos)
	}
	return nil
}
