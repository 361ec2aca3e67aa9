// Package directive implements the grammar of in-body directives: lines
// beginning with '@' that carry metadata (language, comment delimiters,
// encoding, widths) or structure (@others, doc parts), plus section
// references such as "<< name >>".
//
// Directives other than @others and @all must start in column 0. A
// directive word is recognized only when it is followed by whitespace or the
// end of the line, so "@encoding.setter" and "@encoding(x)" are ordinary
// text.
package directive

import "strings"

// Kind classifies a body line.
type Kind int

const (
	// NoDirective is an ordinary line.
	NoDirective Kind = iota
	// AtDoc is "@" followed by whitespace or the end of the line: starts a
	// doc part.
	AtDoc
	// Doc is "@doc": starts a doc part.
	Doc
	// Code is "@c" or "@code": ends a doc part.
	Code
	// Others is "@others", possibly indented.
	Others
	// All is "@all", possibly indented: every descendant is written with
	// its body unexpanded.
	All
	// Misc is any other known directive.
	Misc
)

func (k Kind) String() string {
	switch k {
	case NoDirective:
		return "no-directive"
	case AtDoc:
		return "at"
	case Doc:
		return "doc"
	case Code:
		return "code"
	case Others:
		return "others"
	case All:
		return "all"
	case Misc:
		return "misc"
	default:
		return "unknown"
	}
}

// words lists the directives classified as Misc.
var words = map[string]bool{
	"beautify":       true,
	"color":          true,
	"comment":        true,
	"delims":         true,
	"encoding":       true,
	"end_raw":        true,
	"first":          true,
	"header":         true,
	"ignore":         true,
	"killbeautify":   true,
	"killcolor":      true,
	"language":       true,
	"last":           true,
	"lineending":     true,
	"markup":         true,
	"nobeautify":     true,
	"nocolor":        true,
	"nocolor-node":   true,
	"noheader":       true,
	"nopyflakes":     true,
	"nosearch":       true,
	"nowrap":         true,
	"pagewidth":      true,
	"path":           true,
	"raw":            true,
	"section-delims": true,
	"silent":         true,
	"tabwidth":       true,
	"wrap":           true,
}

// IsDirectiveWord reports whether "@"+word is a known Misc directive.
func IsDirectiveWord(word string) bool {
	return words[word]
}

// Classify returns the kind of a body line. A trailing newline is ignored.
func Classify(line string) Kind {
	s := strings.TrimRight(line, "\r\n")

	t := strings.TrimLeft(s, " \t")

	switch {
	case strings.HasPrefix(t, "@others") && wordEnds(t, len("@others")):
		return Others
	case strings.HasPrefix(t, "@all") && wordEnds(t, len("@all")):
		return All
	}

	if !strings.HasPrefix(s, "@") {
		return NoDirective
	}

	if len(s) == 1 || isBlank(s[1]) {
		return AtDoc
	}

	word, rest := Word(s)
	if word == "" || (rest != "" && !isBlank(rest[0])) {
		return NoDirective
	}

	switch {
	case word == "doc":
		return Doc
	case word == "c" || word == "code":
		return Code
	case word == "others":
		return Others
	case words[word]:
		return Misc
	default:
		return NoDirective
	}
}

// ClassifyLanguage is Classify for a line of a body in language. In cweb,
// "@", "@c" and "@code" are CWEB control codes and classify as NoDirective.
func ClassifyLanguage(line, language string) Kind {
	k := Classify(line)

	if language == "cweb" && (k == AtDoc || k == Code) {
		return NoDirective
	}

	return k
}

// Word splits a line starting with '@' into the directive word and the text
// after it. For "@language python\n" it returns "language" and " python\n".
func Word(line string) (string, string) {
	if !strings.HasPrefix(line, "@") {
		return "", line
	}

	i := 1
	for i < len(line) && isWordByte(line[i]) {
		i++
	}

	return line[1:i], line[i:]
}

// Arg returns the argument text of a directive line: everything after the
// word with surrounding whitespace removed.
func Arg(line string) string {
	_, rest := Word(strings.TrimLeft(line, " \t"))

	return strings.TrimSpace(rest)
}

func wordEnds(s string, i int) bool {
	return i >= len(s) || !isWordByte(s[i])
}

func isWordByte(c byte) bool {
	return c == '-' || c == '_' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
