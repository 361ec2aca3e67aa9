package directive

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrNoDelims       = errors.New("no comment delimiters")
	ErrTooManyDelims  = errors.New("too many comment delimiters")
	ErrNewlineInDelim = errors.New("comment delimiter contains a newline")
)

// Delims are the comment delimiters of a language. Line is the single-line
// comment prefix; Start and End bracket a block comment. Either part may be
// empty.
type Delims struct {
	Line  string
	Start string
	End   string
}

// IsZero reports whether no delimiter is set.
func (d Delims) IsZero() bool {
	return d == Delims{}
}

// Sentinel returns the delimiters used to wrap sentinel lines: the line
// comment prefix when there is one, otherwise the block comment pair.
func (d Delims) Sentinel() (string, string) {
	if d.Line != "" {
		return d.Line, ""
	}

	return d.Start, d.End
}

func (d Delims) String() string {
	return strings.Join(strings.Fields(strings.Join([]string{d.Line, d.Start, d.End}, " ")), " ")
}

// ParseCommentDelims parses the argument of @comment. One token is a line
// comment prefix, two tokens are a block comment pair, three tokens are a
// line prefix followed by a block pair. An underscore stands for a space,
// so "REM_" is the prefix "REM ". A leading "@comment" word is skipped.
func ParseCommentDelims(s string) (Delims, error) {
	if word, rest := Word(strings.TrimSpace(s)); word == "comment" {
		s = rest
	}

	fields := strings.Fields(s)
	for i, f := range fields {
		if strings.Contains(f, "__") {
			return Delims{}, fmt.Errorf("%w: %q", ErrNewlineInDelim, f)
		}

		fields[i] = strings.ReplaceAll(f, "_", " ")
	}

	switch len(fields) {
	case 0:
		return Delims{}, ErrNoDelims
	case 1:
		return Delims{Line: fields[0]}, nil
	case 2:
		return Delims{Start: fields[0], End: fields[1]}, nil
	case 3:
		return Delims{Line: fields[0], Start: fields[1], End: fields[2]}, nil
	default:
		return Delims{}, fmt.Errorf("%w: %q", ErrTooManyDelims, s)
	}
}

// ParseDelims parses the argument of @delims: a sentinel start delimiter
// and an optional end delimiter. Underscores are not translated.
func ParseDelims(s string) (string, string, error) {
	if word, rest := Word(strings.TrimSpace(s)); word == "delims" {
		s = rest
	}

	fields := strings.Fields(s)

	switch len(fields) {
	case 0:
		return "", "", ErrNoDelims
	case 1:
		return fields[0], "", nil
	case 2:
		return fields[0], fields[1], nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrTooManyDelims, s)
	}
}

// languages maps language names to "line start end" delimiter specs in
// the @comment syntax.
var languages = map[string]string{
	"actionscript": "// /* */",
	"ada":          "--",
	"batch":        "REM_",
	"c":            "// /* */",
	"clojure":      ";",
	"cpp":          "// /* */",
	"csharp":       "// /* */",
	"css":          "/* */",
	"cweb":         "@q@ @>",
	"elisp":        ";",
	"erlang":       "%",
	"go":           "// /* */",
	"haskell":      "--",
	"html":         "<!-- -->",
	"ini":          ";",
	"java":         "// /* */",
	"javascript":   "// /* */",
	"json":         "#",
	"julia":        "#",
	"kotlin":       "// /* */",
	"latex":        "%",
	"lisp":         ";",
	"lua":          "--",
	"makefile":     "#",
	"matlab":       "%",
	"md":           "<!-- -->",
	"pascal":       "// { }",
	"perl":         "#",
	"php":          "// /* */",
	"plain":        "#",
	"python":       "#",
	"r":            "#",
	"rest":         "..",
	"ruby":         "#",
	"rust":         "// /* */",
	"scala":        "// /* */",
	"scheme":       ";",
	"shell":        "#",
	"sql":          "--",
	"swift":        "// /* */",
	"tcl":          "#",
	"tex":          "%",
	"toml":         "#",
	"typescript":   "// /* */",
	"vim":          "\"",
	"xml":          "<!-- -->",
	"yaml":         "#",
	"zig":          "//",
}

// LanguageDelims returns the comment delimiters of a language.
func LanguageDelims(language string) (Delims, bool) {
	raw, ok := languages[strings.ToLower(language)]
	if !ok {
		return Delims{}, false
	}

	d, err := ParseCommentDelims(raw)
	if err != nil {
		return Delims{}, false
	}

	return d, true
}

// KnownLanguage reports whether language has a delimiter entry.
func KnownLanguage(language string) bool {
	_, ok := languages[strings.ToLower(language)]

	return ok
}

var extensions = map[string]string{
	".as":    "actionscript",
	".ada":   "ada",
	".adb":   "ada",
	".bat":   "batch",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".clj":   "clojure",
	".css":   "css",
	".el":    "elisp",
	".erl":   "erlang",
	".go":    "go",
	".hs":    "haskell",
	".htm":   "html",
	".html":  "html",
	".ini":   "ini",
	".java":  "java",
	".jl":    "julia",
	".json":  "json",
	".js":    "javascript",
	".kt":    "kotlin",
	".lisp":  "lisp",
	".lua":   "lua",
	".m":     "matlab",
	".md":    "md",
	".mk":    "makefile",
	".pas":   "pascal",
	".php":   "php",
	".pl":    "perl",
	".py":    "python",
	".pyw":   "python",
	".r":     "r",
	".rb":    "ruby",
	".rs":    "rust",
	".rst":   "rest",
	".scala": "scala",
	".scm":   "scheme",
	".sh":    "shell",
	".sql":   "sql",
	".swift": "swift",
	".tcl":   "tcl",
	".tex":   "latex",
	".toml":  "toml",
	".ts":    "typescript",
	".txt":   "plain",
	".vim":   "vim",
	".w":     "cweb",
	".xml":   "xml",
	".yaml":  "yaml",
	".yml":   "yaml",
	".zig":   "zig",
}

// LanguageForPath guesses the language of a file from its extension.
// A file named "Makefile" is a makefile.
func LanguageForPath(path string) (string, bool) {
	base := filepath.Base(path)
	if base == "Makefile" || base == "makefile" {
		return "makefile", true
	}

	lang, ok := extensions[strings.ToLower(filepath.Ext(base))]

	return lang, ok
}
