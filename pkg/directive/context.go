package directive

import (
	"strconv"
	"strings"
)

// Default values of a Context.
const (
	DefaultLanguage  = "python"
	DefaultTabWidth  = -4
	DefaultPageWidth = 132
	DefaultEncoding  = "utf-8"
)

// Context is the directive state in effect for a node: the result of
// folding the directives of all its ancestors' bodies and its own.
type Context struct {
	Language      string
	Delims        Delims
	TabWidth      int
	PageWidth     int
	Encoding      string
	SectionDelims SectionDelims
}

// Default returns the context in effect when no directive applies.
func Default() Context {
	d, _ := LanguageDelims(DefaultLanguage)

	return Context{
		Language:      DefaultLanguage,
		Delims:        d,
		TabWidth:      DefaultTabWidth,
		PageWidth:     DefaultPageWidth,
		Encoding:      DefaultEncoding,
		SectionDelims: DefaultSectionDelims(),
	}
}

// ForPath returns the default context with the language guessed from the
// file name. When the extension is unknown, language is used instead
// (or the default language when language is empty or unknown).
func ForPath(path, language string) Context {
	c := Default()

	lang, ok := LanguageForPath(path)
	if !ok {
		lang = language
	}

	if d, known := LanguageDelims(lang); known {
		c.Language = strings.ToLower(lang)
		c.Delims = d
	}

	return c
}

// Scan folds the directives of bodies, outermost first, into the default
// context.
func Scan(bodies ...string) Context {
	return Default().Scan(bodies...)
}

// Scan folds the directives of bodies, outermost first, into c.
func (c Context) Scan(bodies ...string) Context {
	for _, body := range bodies {
		c = c.Apply(body)
	}

	return c
}

// Apply returns c updated with the directives of one body. Within a body
// the first occurrence of each directive wins. @comment takes precedence
// over the delimiters implied by @language in the same body. Malformed
// directive arguments are ignored.
func (c Context) Apply(body string) Context {
	args := make(map[string]string)

	for line := range strings.Lines(body) {
		if Classify(line) != Misc {
			continue
		}

		word, _ := Word(line)
		if _, seen := args[word]; !seen {
			args[word] = Arg(line)
		}
	}

	if arg, ok := args["language"]; ok {
		if lang := firstField(arg); lang != "" {
			c.Language = strings.ToLower(lang)

			if d, known := LanguageDelims(lang); known {
				c.Delims = d
			}
		}
	}

	if arg, ok := args["comment"]; ok {
		if d, err := ParseCommentDelims(arg); err == nil {
			c.Delims = d
		}
	}

	if arg, ok := args["tabwidth"]; ok {
		if n, err := strconv.Atoi(firstField(arg)); err == nil && n != 0 {
			c.TabWidth = n
		}
	}

	if arg, ok := args["pagewidth"]; ok {
		if n, err := strconv.Atoi(firstField(arg)); err == nil && n > 0 {
			c.PageWidth = n
		}
	}

	if arg, ok := args["encoding"]; ok {
		if enc := firstField(arg); enc != "" {
			c.Encoding = strings.ToLower(enc)
		}
	}

	if arg, ok := args["section-delims"]; ok {
		if sd, err := ParseSectionDelims(arg); err == nil {
			c.SectionDelims = sd
		}
	}

	return c
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}
