package directive

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBadSectionDelims = errors.New("@section-delims needs two non-empty delimiters")

// SectionDelims bracket section names, "<<" and ">>" by default.
type SectionDelims struct {
	Open  string
	Close string
}

// DefaultSectionDelims returns the standard section brackets.
func DefaultSectionDelims() SectionDelims {
	return SectionDelims{Open: "<<", Close: ">>"}
}

// ParseSectionDelims parses the argument of @section-delims.
func ParseSectionDelims(s string) (SectionDelims, error) {
	if word, rest := Word(strings.TrimSpace(s)); word == "section-delims" {
		s = rest
	}

	fields := strings.Fields(s)
	if len(fields) != 2 {
		return SectionDelims{}, fmt.Errorf("%w: %q", ErrBadSectionDelims, strings.TrimSpace(s))
	}

	return SectionDelims{Open: fields[0], Close: fields[1]}, nil
}

// Ref is a section reference found in a body line.
type Ref struct {
	// Indent is the whitespace before the reference.
	Indent string
	// Name is the reference including its brackets, e.g. "<< imports >>".
	Name string
	// Tail is the text after the closing bracket, newline included.
	Tail string
}

// FindRef reports whether line starts (after indentation) with a section
// reference and returns it. Only one reference per line is recognized.
func (sd SectionDelims) FindRef(line string) (Ref, bool) {
	t := strings.TrimLeft(line, " \t")
	indent := line[:len(line)-len(t)]

	name, ok := sd.leadingName(t)
	if !ok {
		return Ref{}, false
	}

	return Ref{Indent: indent, Name: name, Tail: t[len(name):]}, true
}

// IsSectionName reports whether a headline names a section definition.
func (sd SectionDelims) IsSectionName(headline string) bool {
	_, ok := sd.leadingName(strings.TrimSpace(headline))

	return ok
}

// Matches reports whether headline defines the section referenced by name.
// Case, spaces and tabs are ignored, and the headline may carry text after
// the name.
func (sd SectionDelims) Matches(headline, name string) bool {
	h, n := normalizeName(headline), normalizeName(name)

	return n != "" && strings.HasPrefix(h, n)
}

func (sd SectionDelims) leadingName(s string) (string, bool) {
	if sd.Open == "" || sd.Close == "" || !strings.HasPrefix(s, sd.Open) {
		return "", false
	}

	j := strings.Index(s[len(sd.Open):], sd.Close)
	if j < 0 {
		return "", false
	}

	inner := s[len(sd.Open) : len(sd.Open)+j]
	if strings.TrimSpace(inner) == "" || strings.ContainsAny(inner, "\r\n") {
		return "", false
	}

	return s[:len(sd.Open)+j+len(sd.Close)], true
}

func normalizeName(s string) string {
	s = strings.ToLower(s)

	return strings.NewReplacer(" ", "", "\t", "").Replace(s)
}
