package cli

import (
	"context"
	"encoding/json"
	"fmt"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/outline/pkg/outline"
)

type dumpFile struct {
	Path     string    `json:"path"     yaml:"path"`
	Delims   string    `json:"delims"   yaml:"delims"`
	Encoding string    `json:"encoding" yaml:"encoding"`
	Root     *dumpNode `json:"root"     yaml:"root"`
}

// dumpNode is one occurrence. Only the first occurrence of a clone carries
// its body and children; later ones set Ref.
type dumpNode struct {
	GNX      string      `json:"gnx"                yaml:"gnx"`
	Headline string      `json:"headline"           yaml:"headline"`
	Body     string      `json:"body,omitempty"     yaml:"body,omitempty"`
	Cloned   bool        `json:"cloned,omitempty"   yaml:"cloned,omitempty"`
	Ref      bool        `json:"ref,omitempty"      yaml:"ref,omitempty"`
	Children []*dumpNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// DumpCmd returns the dump command.
func DumpCmd(a *app) *Command {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	format := fs.StringP("format", "f", "yaml", "Output `format`: yaml or json")

	return &Command{
		Flags:    fs,
		Usage:    "dump <file> [flags]",
		Short:    "Print the outline with bodies as YAML or JSON",
		Examples: []string{"dump src/app.py", "dump --format json src/app.py"},
		Exec: func(ctx context.Context, io *IO, args []string) error {
			path, err := fileArg(args)
			if err != nil {
				return err
			}

			if *format != "yaml" && *format != "json" {
				return fmt.Errorf("%w: %q", ErrUnknownFormat, *format)
			}

			_, res, err := a.load(ctx, path)
			if err != nil {
				return err
			}

			warnAll(io, res.Warnings)

			doc := dumpFile{
				Path:     path,
				Delims:   res.Delims.String(),
				Encoding: res.Encoding,
				Root:     dumpTree(res.Root, map[outline.GNX]bool{}),
			}

			out, err := encodeDump(doc, *format)
			if err != nil {
				return err
			}

			io.Printf("%s", out)

			return nil
		},
	}
}

func dumpTree(p outline.Position, seen map[outline.GNX]bool) *dumpNode {
	n := &dumpNode{
		GNX:      string(p.GNX()),
		Headline: p.Headline(),
		Cloned:   p.IsCloned(),
	}

	if seen[p.GNX()] {
		n.Ref = true

		return n
	}

	seen[p.GNX()] = true
	n.Body = p.Body()

	for _, c := range p.Children() {
		n.Children = append(n.Children, dumpTree(c, seen))
	}

	return n
}

func encodeDump(doc dumpFile, format string) (string, error) {
	if format == "json" {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode json: %w", err)
		}

		return string(data) + "\n", nil
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}

	return string(data), nil
}
