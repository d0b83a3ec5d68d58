// Package pagerange compiles page-selection expressions such as
// "1-5,10", "z-1", "1-10:odd" or "1-z,x3" into ordered page lists.
//
// Syntax: comma-separated terms. A term is a token, a token range A-B with an
// optional :odd or :even suffix, or an x-prefixed exclusion. Tokens are a
// positive page number, z (last page) or rN (Nth page from the end, r1 == z).
// A bare :odd or :even selects from the whole document.
//
// Pages are 1-indexed throughout; engines convert at their own boundary.
package pagerange

import (
	"strconv"
	"strings"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
)

// TokenKind distinguishes page token forms.
type TokenKind int

const (
	TokenForward TokenKind = iota // N
	TokenLast                     // z
	TokenReverse                  // rN
)

// Token is a page reference not yet resolved against a page count.
type Token struct {
	Kind TokenKind
	N    int
}

// Resolve converts the token to a 1-indexed page number.
func (t Token) Resolve(pageCount int) int {
	switch t.Kind {
	case TokenLast:
		return pageCount
	case TokenReverse:
		return pageCount - t.N + 1
	default:
		return t.N
	}
}

func (t Token) String() string {
	switch t.Kind {
	case TokenLast:
		return "z"
	case TokenReverse:
		return "r" + strconv.Itoa(t.N)
	default:
		return strconv.Itoa(t.N)
	}
}

// Filter restricts a range to alternating positions.
type Filter int

const (
	FilterNone Filter = iota
	FilterOdd
	FilterEven
)

// Term is one comma-separated element of an expression.
type Term struct {
	Start   Token
	End     Token
	IsRange bool
	Filter  Filter
	Exclude bool
}

// Expr is a parsed expression.
type Expr struct {
	Terms []Term
}

// ErrEmptySelection reports an expression that selects no pages where at
// least one is needed.
var ErrEmptySelection = invalid("selection is empty")

func invalid(format string, args ...any) error {
	return apperrors.Newf(apperrors.KindInvalidPageRange, "invalid page range", format, args...)
}

// Parse parses expr without reference to a page count.
func Parse(expr string) (Expr, error) {
	if strings.TrimSpace(expr) == "" {
		return Expr{}, invalid("empty expression")
	}

	parts := strings.Split(expr, ",")
	terms := make([]Term, 0, len(parts))
	for _, part := range parts {
		term, err := parseTerm(strings.TrimSpace(part))
		if err != nil {
			return Expr{}, err
		}
		terms = append(terms, term)
	}
	return Expr{Terms: terms}, nil
}

func parseTerm(s string) (Term, error) {
	if s == "" {
		return Term{}, invalid("empty term")
	}

	var term Term
	if strings.HasPrefix(s, "x") {
		term.Exclude = true
		s = strings.TrimSpace(s[1:])
		if s == "" {
			return Term{}, invalid("exclusion without a page")
		}
	}

	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		switch s[idx+1:] {
		case "odd":
			term.Filter = FilterOdd
		case "even":
			term.Filter = FilterEven
		default:
			return Term{}, invalid("unknown filter %q", s[idx+1:])
		}
		s = strings.TrimSpace(s[:idx])
		if s == "" {
			term.Start = Token{Kind: TokenForward, N: 1}
			term.End = Token{Kind: TokenLast}
			term.IsRange = true
			return term, nil
		}
	}

	if start, end, ok := strings.Cut(s, "-"); ok {
		a, err := parseToken(strings.TrimSpace(start))
		if err != nil {
			return Term{}, err
		}
		b, err := parseToken(strings.TrimSpace(end))
		if err != nil {
			return Term{}, err
		}
		term.Start, term.End, term.IsRange = a, b, true
		return term, nil
	}

	if term.Filter != FilterNone {
		return Term{}, invalid("filter %q requires a range", s)
	}
	tok, err := parseToken(s)
	if err != nil {
		return Term{}, err
	}
	term.Start, term.End = tok, tok
	return term, nil
}

func parseToken(s string) (Token, error) {
	switch {
	case s == "z":
		return Token{Kind: TokenLast}, nil
	case strings.HasPrefix(s, "r"):
		n, err := parseNumber(s[1:])
		if err != nil {
			return Token{}, invalid("bad reverse token %q", s)
		}
		return Token{Kind: TokenReverse, N: n}, nil
	default:
		n, err := parseNumber(s)
		if err != nil {
			return Token{}, invalid("bad page token %q", s)
		}
		return Token{Kind: TokenForward, N: n}, nil
	}
}

func parseNumber(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

// Evaluate resolves the expression against pageCount. Inclusion terms are
// concatenated in order with duplicates kept; exclusions then remove every
// occurrence of their pages. An empty result is not an error.
func (e Expr) Evaluate(pageCount int) ([]int, error) {
	if pageCount < 1 {
		return nil, invalid("document has no pages")
	}

	var pages []int
	excluded := make(map[int]bool)
	for _, term := range e.Terms {
		expanded, err := term.expand(pageCount)
		if err != nil {
			return nil, err
		}
		if term.Exclude {
			for _, p := range expanded {
				excluded[p] = true
			}
			continue
		}
		pages = append(pages, expanded...)
	}

	if len(excluded) == 0 {
		return pages, nil
	}
	kept := pages[:0]
	for _, p := range pages {
		if !excluded[p] {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

func (t Term) expand(pageCount int) ([]int, error) {
	start, err := resolveInBounds(t.Start, pageCount)
	if err != nil {
		return nil, err
	}
	if !t.IsRange {
		return []int{start}, nil
	}
	end, err := resolveInBounds(t.End, pageCount)
	if err != nil {
		return nil, err
	}

	step := 1
	if start > end {
		step = -1
	}
	var out []int
	for pos, p := 0, start; ; pos, p = pos+1, p+step {
		switch t.Filter {
		case FilterOdd:
			if pos%2 == 0 {
				out = append(out, p)
			}
		case FilterEven:
			if pos%2 == 1 {
				out = append(out, p)
			}
		default:
			out = append(out, p)
		}
		if p == end {
			break
		}
	}
	return out, nil
}

func resolveInBounds(tok Token, pageCount int) (int, error) {
	p := tok.Resolve(pageCount)
	if p < 1 || p > pageCount {
		return 0, invalid("page %s out of bounds (document has %d pages)", tok, pageCount)
	}
	return p, nil
}

// Select parses and evaluates expr in one step.
func Select(expr string, pageCount int) ([]int, error) {
	parsed, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return parsed.Evaluate(pageCount)
}
