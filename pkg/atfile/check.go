package atfile

import (
	"encoding/json"
	"go/parser"
	"go/token"
)

// Checker reports a syntax error in the plain source of a file, that is the
// text written with sentinels removed.
type Checker func(source string) error

// GoChecker parses source as a Go file.
func GoChecker(source string) error {
	_, err := parser.ParseFile(token.NewFileSet(), "", source, parser.AllErrors)

	return err
}

// JSONChecker decodes source as a JSON value.
func JSONChecker(source string) error {
	var v any

	return json.Unmarshal([]byte(source), &v)
}

// DefaultCheckers returns the built-in checkers keyed by language.
func DefaultCheckers() map[string]Checker {
	return map[string]Checker{
		"go":   GoChecker,
		"json": JSONChecker,
	}
}
