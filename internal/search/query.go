// Package search implements the boolean query language used to match note
// content: bare terms and quoted phrases combined with AND, OR, and NOT.
//
// NOT binds tighter than AND, and AND tighter than OR. Adjacent operands
// are joined by an implicit AND. Terms and phrases match as case-insensitive
// substrings of the content; no tokenization or stemming is performed.
package search

import (
	"errors"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenTerm tokenKind = iota
	tokenPhrase
	tokenAnd
	tokenOr
	tokenNot
)

type token struct {
	kind tokenKind
	text string
}

// Query is a compiled search expression, safe for concurrent evaluation
// against many notes.
type Query struct {
	raw  string
	root expr
}

// Parse compiles a query string. Parse never fails: an empty query compiles
// to a query matching nothing, unbalanced quotes are kept as literal quote
// characters, and malformed boolean syntax degrades to an implicit AND of
// every term and phrase that could be extracted.
func Parse(raw string) *Query {
	toks := tokenize(raw)
	root, err := parseTokens(toks)
	if err != nil {
		root = flatten(toks)
	}
	return &Query{raw: raw, root: root}
}

// IsEmpty reports whether the query has no operands. An empty query matches
// no content.
func (q *Query) IsEmpty() bool { return q.root == nil }

// String returns the original query text.
func (q *Query) String() string { return q.raw }

// Match reports whether content satisfies the query.
func (q *Query) Match(content string) bool {
	if q.root == nil {
		return false
	}
	return q.root.match(strings.ToLower(content))
}

// Eval reports whether content satisfies the query and, if it does, the
// relevance score: the total occurrence count of every positive term and
// phrase. Operands under a NOT contribute nothing.
func (q *Query) Eval(content string) (bool, int) {
	if q.root == nil {
		return false, 0
	}
	lc := strings.ToLower(content)
	if !q.root.match(lc) {
		return false, 0
	}
	return true, q.root.score(lc)
}

// tokenize splits raw into operand and operator tokens. A double quote opens
// a phrase only when a closing quote follows; otherwise it is an ordinary
// character of the surrounding term.
func tokenize(raw string) []token {
	var toks []token
	r := []rune(raw)
	i := 0
	for i < len(r) {
		switch {
		case unicode.IsSpace(r[i]):
			i++
		case r[i] == '"':
			end := closingQuote(r, i+1)
			if end < 0 {
				start := i
				i++
				for i < len(r) && !unicode.IsSpace(r[i]) {
					i++
				}
				toks = append(toks, token{tokenTerm, string(r[start:i])})
				continue
			}
			if text := string(r[i+1 : end]); text != "" {
				toks = append(toks, token{tokenPhrase, text})
			}
			i = end + 1
		default:
			start := i
			for i < len(r) && !unicode.IsSpace(r[i]) && r[i] != '"' {
				i++
			}
			toks = append(toks, classify(string(r[start:i])))
		}
	}
	return toks
}

func closingQuote(r []rune, from int) int {
	for i := from; i < len(r); i++ {
		if r[i] == '"' {
			return i
		}
	}
	return -1
}

func classify(word string) token {
	switch strings.ToUpper(word) {
	case "AND":
		return token{tokenAnd, word}
	case "OR":
		return token{tokenOr, word}
	case "NOT":
		return token{tokenNot, word}
	}
	return token{tokenTerm, word}
}

var errSyntax = errors.New("malformed query")

// parseTokens runs the strict grammar: or := and (OR and)*,
// and := unary ((AND)? unary)*, unary := NOT unary | term | phrase.
func parseTokens(toks []token) (expr, error) {
	if len(toks) == 0 {
		return nil, nil
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, errSyntax
	}
	return root, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	kids := []expr{left}
	for {
		tk, ok := p.peek()
		if !ok || tk.kind != tokenOr {
			break
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		kids = append(kids, right)
	}
	if len(kids) == 1 {
		return kids[0], nil
	}
	return orExpr{kids: kids}, nil
}

func (p *parser) parseAnd() (expr, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	kids := []expr{first}
	for {
		tk, ok := p.peek()
		if !ok {
			break
		}
		switch tk.kind {
		case tokenAnd:
			p.pos++
		case tokenTerm, tokenPhrase, tokenNot:
			// implicit AND
		default:
			if len(kids) == 1 {
				return kids[0], nil
			}
			return andExpr{kids: kids}, nil
		}
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		kids = append(kids, next)
	}
	if len(kids) == 1 {
		return kids[0], nil
	}
	return andExpr{kids: kids}, nil
}

func (p *parser) parseUnary() (expr, error) {
	tk, ok := p.peek()
	if !ok {
		return nil, errSyntax
	}
	if tk.kind == tokenNot {
		p.pos++
		kid, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notExpr{kid: kid}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (expr, error) {
	tk, ok := p.peek()
	if !ok {
		return nil, errSyntax
	}
	switch tk.kind {
	case tokenTerm:
		p.pos++
		return termExpr{text: strings.ToLower(tk.text)}, nil
	case tokenPhrase:
		p.pos++
		return phraseExpr{text: strings.ToLower(tk.text)}, nil
	}
	return nil, errSyntax
}

// flatten is the degraded parse: an implicit AND over every operand token,
// ignoring operator structure entirely.
func flatten(toks []token) expr {
	var kids []expr
	for _, tk := range toks {
		switch tk.kind {
		case tokenTerm:
			kids = append(kids, termExpr{text: strings.ToLower(tk.text)})
		case tokenPhrase:
			kids = append(kids, phraseExpr{text: strings.ToLower(tk.text)})
		}
	}
	switch len(kids) {
	case 0:
		return nil
	case 1:
		return kids[0]
	}
	return andExpr{kids: kids}
}
