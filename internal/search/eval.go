package search

import "strings"

// expr is a node of a compiled query. Both methods take content already
// folded to lower case so a note is folded once per evaluation.
type expr interface {
	match(lc string) bool
	score(lc string) int
}

type termExpr struct{ text string }

func (e termExpr) match(lc string) bool { return strings.Contains(lc, e.text) }
func (e termExpr) score(lc string) int  { return strings.Count(lc, e.text) }

// phraseExpr matches exactly like a term: a contiguous case-insensitive
// substring. The distinction exists only at the syntax level, where quoting
// protects spaces and operator keywords.
type phraseExpr struct{ text string }

func (e phraseExpr) match(lc string) bool { return strings.Contains(lc, e.text) }
func (e phraseExpr) score(lc string) int  { return strings.Count(lc, e.text) }

type andExpr struct{ kids []expr }

func (e andExpr) match(lc string) bool {
	for _, k := range e.kids {
		if !k.match(lc) {
			return false
		}
	}
	return true
}

func (e andExpr) score(lc string) int {
	total := 0
	for _, k := range e.kids {
		total += k.score(lc)
	}
	return total
}

type orExpr struct{ kids []expr }

func (e orExpr) match(lc string) bool {
	for _, k := range e.kids {
		if k.match(lc) {
			return true
		}
	}
	return false
}

func (e orExpr) score(lc string) int {
	total := 0
	for _, k := range e.kids {
		total += k.score(lc)
	}
	return total
}

type notExpr struct{ kid expr }

func (e notExpr) match(lc string) bool { return !e.kid.match(lc) }
func (e notExpr) score(string) int     { return 0 }
