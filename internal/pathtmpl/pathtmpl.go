// Package pathtmpl parses resource path templates such as "/a/{id}/b" and
// compiles them to anchored regular expressions. The compiler and the router
// both go through this package so placeholder order and matching agree.
package pathtmpl

import (
	"fmt"
	"regexp"
	"strings"
)

// Segment is one slash-separated element of a template.
type Segment struct {
	// Raw is the segment text, e.g. "items", "{id}" or "v{version}".
	Raw string

	// Params lists the placeholder names in the segment, in order.
	Params []string
}

// Literal reports whether the segment has no placeholder.
func (s Segment) Literal() bool {
	return len(s.Params) == 0
}

// Template is a parsed path template.
type Template struct {
	Raw      string
	Segments []Segment
}

var placeholder = regexp.MustCompile(`\{([^{}/]*)\}`)

// Parse parses a template. Leading, trailing and repeated slashes are
// ignored. Unbalanced braces and empty placeholders are errors.
func Parse(raw string) (Template, error) {
	t := Template{Raw: raw}
	for _, part := range strings.Split(raw, "/") {
		if part == "" {
			continue
		}
		seg := Segment{Raw: part}
		for _, m := range placeholder.FindAllStringSubmatch(part, -1) {
			if m[1] == "" {
				return Template{}, fmt.Errorf("pathtmpl: empty placeholder in %q", raw)
			}
			seg.Params = append(seg.Params, m[1])
		}
		if rest := placeholder.ReplaceAllString(part, ""); strings.ContainsAny(rest, "{}") {
			return Template{}, fmt.Errorf("pathtmpl: unbalanced braces in %q", raw)
		}
		t.Segments = append(t.Segments, seg)
	}
	return t, nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) Template {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// Params returns all placeholder names in template order.
func (t Template) Params() []string {
	var names []string
	for _, s := range t.Segments {
		names = append(names, s.Params...)
	}
	return names
}

// Has reports whether the template contains the placeholder name.
func (t Template) Has(name string) bool {
	for _, s := range t.Segments {
		for _, p := range s.Params {
			if p == name {
				return true
			}
		}
	}
	return false
}

// Join appends child's segments to t.
func (t Template) Join(child Template) Template {
	segs := make([]Segment, 0, len(t.Segments)+len(child.Segments))
	segs = append(segs, t.Segments...)
	segs = append(segs, child.Segments...)
	joined := Template{Segments: segs}
	joined.Raw = joined.String()
	return joined
}

// String renders the template in canonical form, "/" for the empty template.
func (t Template) String() string {
	if len(t.Segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range t.Segments {
		b.WriteByte('/')
		b.WriteString(s.Raw)
	}
	return b.String()
}

// Shape returns the template with every placeholder name erased. Two
// templates with the same shape match the same paths.
func (t Template) Shape() string {
	var b strings.Builder
	for _, s := range t.Segments {
		b.WriteByte('/')
		b.WriteString(placeholder.ReplaceAllString(s.Raw, "{}"))
	}
	return b.String()
}

// Expression is a compiled template.
type Expression struct {
	// Regexp matches a full request path. Group i+1 captures Names[i].
	Regexp *regexp.Regexp

	// Names lists the placeholder names in capture order.
	Names []string
}

// Compile compiles t under prefix (the API mount path) into an anchored
// expression. Every placeholder matches one or more non-slash characters and
// a single trailing slash is optional.
func (t Template) Compile(prefix string) (*Expression, error) {
	var b strings.Builder
	b.WriteString("^")
	b.WriteString(regexp.QuoteMeta(strings.TrimSuffix(prefix, "/")))
	for _, s := range t.Segments {
		b.WriteByte('/')
		last := 0
		for _, loc := range placeholder.FindAllStringIndex(s.Raw, -1) {
			b.WriteString(regexp.QuoteMeta(s.Raw[last:loc[0]]))
			b.WriteString("([^/]+)")
			last = loc[1]
		}
		b.WriteString(regexp.QuoteMeta(s.Raw[last:]))
	}
	b.WriteString("/?$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("pathtmpl: compile %q: %w", t.Raw, err)
	}
	return &Expression{Regexp: re, Names: t.Params()}, nil
}

// Match applies the expression to path and returns the captured values
// grouped by name, in capture order. It returns nil if path does not match.
func (e *Expression) Match(path string) map[string][]string {
	m := e.Regexp.FindStringSubmatch(path)
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(e.Names))
	for i, name := range e.Names {
		out[name] = append(out[name], m[i+1])
	}
	return out
}

// MoreSpecific reports whether a must be tried before b: deeper templates
// first, then, at the first position where one segment is a literal and the
// other is not, the literal one. It returns false for templates of equal
// specificity so stable sorts keep declaration order.
func MoreSpecific(a, b Template) bool {
	if len(a.Segments) != len(b.Segments) {
		return len(a.Segments) > len(b.Segments)
	}
	for i := range a.Segments {
		al, bl := a.Segments[i].Literal(), b.Segments[i].Literal()
		if al != bl {
			return al
		}
	}
	return false
}
