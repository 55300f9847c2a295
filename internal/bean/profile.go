package bean

import (
	"sort"
	"strings"
	"unicode"
)

const (
	// DefaultProfile is active when no profile is explicitly activated.
	DefaultProfile = "default"
	// DefaultTestProfile is the synthetic profile set used by test contexts
	// that did not declare active profiles. It disables profile filtering.
	DefaultTestProfile = "_default_test_"
)

// ProfileSet is a normalized set of active profile names.
type ProfileSet struct {
	names []string
}

// NewProfileSet normalizes names: trimmed, de-duplicated, sorted, blanks dropped.
func NewProfileSet(names ...string) ProfileSet {
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	sort.Strings(out)
	return ProfileSet{names: out}
}

// Names returns the profile names in sorted order.
func (s ProfileSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Empty reports whether no profile is active.
func (s ProfileSet) Empty() bool {
	return len(s.names) == 0
}

// Contains reports whether name is active.
func (s ProfileSet) Contains(name string) bool {
	i := sort.SearchStrings(s.names, name)
	return i < len(s.names) && s.names[i] == name
}

// Key is a stable identity for caching. The default profile does not take
// part in it, so {} and {default} share one key.
func (s ProfileSet) Key() string {
	var parts []string
	for _, n := range s.names {
		if n != DefaultProfile {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, ",")
}

func (s ProfileSet) String() string {
	return strings.Join(s.names, ",")
}

// Filtering reports whether candidates must be checked against s. Empty sets
// and the synthetic default-test set let everything through.
func (s ProfileSet) Filtering() bool {
	if s.Empty() {
		return false
	}
	return !(len(s.names) == 1 && s.names[0] == DefaultTestProfile)
}

// Profiles is the list of profile expressions declared on a bean-like
// element. An element with no expressions is always active.
type Profiles []string

// Matches reports whether any declared expression holds under active. With
// nothing active, only the default profile is considered active.
func (p Profiles) Matches(active ProfileSet) bool {
	if len(p) == 0 {
		return true
	}
	eff := active
	if eff.Empty() {
		eff = NewProfileSet(DefaultProfile)
	}
	for _, expr := range p {
		for _, part := range splitTopLevel(expr) {
			if evalProfile(part, eff) {
				return true
			}
		}
	}
	return false
}

// Accepts is the lookup gate: when active does not filter, every candidate
// passes, otherwise p must match.
func (p Profiles) Accepts(active ProfileSet) bool {
	if !active.Filtering() {
		return true
	}
	return p.Matches(active)
}

// ParseProfiles splits a profile attribute into its expressions. Entries
// are separated by commas, semicolons or whitespace between two operands,
// so "dev,qa", "dev qa" and "dev & qa" read as expected.
func ParseProfiles(attr string) Profiles {
	parts := splitTopLevel(attr)
	if len(parts) == 0 {
		return nil
	}
	return Profiles(parts)
}

// And combines an enclosing scope's profiles with the element's own.
// The result matches only when both do.
func (p Profiles) And(inner Profiles) Profiles {
	if len(p) == 0 {
		return inner
	}
	if len(inner) == 0 {
		return p
	}
	return Profiles{"(" + p.anyOf() + ")&(" + inner.anyOf() + ")"}
}

// anyOf renders p as a single expression holding when any entry does.
func (p Profiles) anyOf() string {
	var parts []string
	for _, expr := range p {
		for _, part := range splitTopLevel(expr) {
			parts = append(parts, "("+part+")")
		}
	}
	return strings.Join(parts, "|")
}

// splitTopLevel splits a profile list outside parentheses. Commas and
// semicolons always separate; whitespace separates only when it sits between
// the end of one operand and the start of the next.
func splitTopLevel(expr string) []string {
	var (
		parts   []string
		cur     strings.Builder
		depth   int
		operand bool
		gap     bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			parts = append(parts, s)
		}
		cur.Reset()
		operand, gap = false, false
	}
	for _, r := range expr {
		switch {
		case (r == ',' || r == ';') && depth == 0:
			flush()
			continue
		case unicode.IsSpace(r):
			gap = true
			continue
		}
		if gap && depth == 0 && operand && r != '&' && r != '|' && r != ')' {
			flush()
		}
		if gap {
			cur.WriteByte(' ')
			gap = false
		}
		cur.WriteRune(r)
		switch r {
		case '(':
			depth++
			operand = false
		case ')':
			depth--
			operand = true
		case '&', '|', '!':
			operand = false
		default:
			operand = true
		}
	}
	flush()
	return parts
}

func evalProfile(expr string, active ProfileSet) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}
	p := &profileParser{tokens: tokenizeProfile(expr)}
	v, ok := p.parseOr(active)
	if !ok || p.pos != len(p.tokens) {
		// Malformed: fall back to a literal name.
		return active.Contains(expr)
	}
	return v
}

func tokenizeProfile(expr string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range expr {
		switch r {
		case '&', '|', '!', '(', ')':
			flush()
			tokens = append(tokens, string(r))
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

type profileParser struct {
	tokens []string
	pos    int
}

func (p *profileParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *profileParser) parseOr(active ProfileSet) (bool, bool) {
	v, ok := p.parseAnd(active)
	if !ok {
		return false, false
	}
	for p.peek() == "|" {
		p.pos++
		r, ok := p.parseAnd(active)
		if !ok {
			return false, false
		}
		v = v || r
	}
	return v, true
}

func (p *profileParser) parseAnd(active ProfileSet) (bool, bool) {
	v, ok := p.parseUnary(active)
	if !ok {
		return false, false
	}
	for p.peek() == "&" {
		p.pos++
		r, ok := p.parseUnary(active)
		if !ok {
			return false, false
		}
		v = v && r
	}
	return v, true
}

func (p *profileParser) parseUnary(active ProfileSet) (bool, bool) {
	switch tok := p.peek(); tok {
	case "":
		return false, false
	case "!":
		p.pos++
		v, ok := p.parseUnary(active)
		return !v, ok
	case "(":
		p.pos++
		v, ok := p.parseOr(active)
		if !ok || p.peek() != ")" {
			return false, false
		}
		p.pos++
		return v, true
	case "&", "|", ")":
		return false, false
	default:
		p.pos++
		return active.Contains(tok), true
	}
}
