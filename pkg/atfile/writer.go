package atfile

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/calvinalkan/outline/pkg/directive"
	"github.com/calvinalkan/outline/pkg/outline"
)

// WriteOptions configures Write.
type WriteOptions struct {
	// Delims overrides the comment delimiters implied by the path and the
	// directives of the root and its ancestors.
	Delims directive.Delims

	// Encoding overrides the encoding named by @encoding.
	Encoding string

	// PathHint is the file name; its extension selects the language when no
	// @language directive applies.
	PathHint string

	// Language is used when neither a directive nor PathHint names one.
	Language string

	// NoSentinels writes plain source: doc parts and code, no sentinel lines.
	NoSentinels bool

	// Raw writes every node of the subtree with a node marker and copies
	// bodies line for line without interpreting directives. This is the
	// clipboard format.
	Raw bool

	// Checkers maps a language to a syntax check run on the plain source.
	// A failed check is reported as a warning.
	Checkers map[string]Checker
}

// WriteResult is the output of Write.
type WriteResult struct {
	Text     string
	Language string
	Encoding string
	Warnings []Warning
}

type writer struct {
	root outline.Position
	opts WriteOptions
	ctx  directive.Context

	out    bytes.Buffer
	start  string
	end    string
	sd     directive.SectionDelims
	indent string

	written  map[string]bool
	active   []outline.GNX
	warnings []Warning
}

// Write serializes the subtree at root into sentinel-annotated text.
// Nothing is returned but the error when writing fails.
func Write(o *outline.Outline, root outline.Position, opts WriteOptions) (WriteResult, error) {
	if root.Outline() != o || !root.Valid() {
		return WriteResult{}, ErrInvalidRoot
	}

	ctx := rootContext(root, opts)
	start, end := ctx.Delims.Sentinel()

	if start == "" {
		start, end = "#", ""
	}

	w := &writer{
		root:    root,
		opts:    opts,
		ctx:     ctx,
		start:   start,
		end:     end,
		sd:      sectionDelims(root),
		written: make(map[string]bool),
	}

	var err error
	if opts.Raw {
		err = w.putRawFile(ctx.Encoding)
	} else {
		err = w.putFile(ctx.Encoding)
	}

	if err != nil {
		return WriteResult{}, err
	}

	res := WriteResult{
		Text:     w.out.String(),
		Language: ctx.Language,
		Encoding: ctx.Encoding,
		Warnings: w.warnings,
	}

	if check := opts.Checkers[ctx.Language]; check != nil && !opts.Raw {
		plainOpts := opts
		plainOpts.NoSentinels = true
		plainOpts.Checkers = nil

		plain, err := Write(o, root, plainOpts)
		if err != nil {
			return WriteResult{}, err
		}

		if err := check(plain.Text); err != nil {
			res.Warnings = append(res.Warnings, Warning{
				GNX:      root.GNX(),
				Headline: root.Headline(),
				Msg:      fmt.Sprintf("%s syntax check failed: %v", ctx.Language, err),
			})
		}
	}

	return res, nil
}

// rootContext folds the directives of root's ancestors (outermost first)
// and of root itself.
func rootContext(root outline.Position, opts WriteOptions) directive.Context {
	ctx := directive.ForPath(opts.PathHint, opts.Language)

	ancestors := root.Ancestors()
	slices.Reverse(ancestors)

	for _, a := range ancestors {
		ctx = ctx.Apply(a.Body())
	}

	ctx = ctx.Apply(root.Body())

	if opts.Encoding != "" {
		ctx.Encoding = opts.Encoding
	}

	if !opts.Delims.IsZero() {
		ctx.Delims = opts.Delims
	}

	return ctx
}

// sectionDelims returns the section brackets in effect when root's body
// starts: those set by its ancestors. Directives in root's own body take
// effect from their line on.
func sectionDelims(root outline.Position) directive.SectionDelims {
	ancestors := root.Ancestors()
	slices.Reverse(ancestors)

	bodies := make([]string, 0, len(ancestors))
	for _, a := range ancestors {
		bodies = append(bodies, a.Body())
	}

	return directive.Scan(bodies...).SectionDelims
}

func (w *writer) putFile(encoding string) error {
	lines := splitLines(w.root.Body())
	firstN, lastFrom := atFirstLastBlocks(lines)

	for _, line := range lines[:firstN] {
		w.out.WriteString(directiveText(line) + "\n")
	}

	w.putSentinel(headerSentinel(encoding))

	if err := w.putNodeSentinel(w.root); err != nil {
		return err
	}

	if _, err := w.putBody(w.root, true); err != nil {
		return err
	}

	w.putSentinel("@-leo")

	for _, line := range lines[lastFrom:] {
		w.out.WriteString(directiveText(line))

		if strings.HasSuffix(line, "\n") {
			w.out.WriteString("\n")
		}
	}

	return w.checkOrphans()
}

func (w *writer) putRawFile(encoding string) error {
	w.putSentinel(headerSentinel(encoding))

	for _, p := range w.root.SelfAndSubtree() {
		if err := w.putNodeSentinel(p); err != nil {
			return err
		}

		body := p.Body()
		for _, line := range splitLines(body) {
			w.putCodeLine(line)
		}

		if missingNewline(body) {
			w.putSentinel("@nonl")
		}
	}

	w.putSentinel("@-leo")

	return nil
}

// language returns the language in effect for the body of p, a node of
// the written subtree.
func (w *writer) language(p outline.Position) string {
	ctx := w.ctx

	var chain []outline.Position

	for q := p; !q.IsZero() && !q.Equal(w.root); q = q.Parent() {
		chain = append(chain, q)
	}

	for _, q := range slices.Backward(chain) {
		ctx = ctx.Apply(q.Body())
	}

	return ctx.Language
}

// putBody writes the body of p and returns whether it wrote the children of
// p itself, through @others or @all.
func (w *writer) putBody(p outline.Position, isRoot bool) (bool, error) {
	body := p.Body()
	lines := splitLines(body)
	lang := w.language(p)

	firstN, lastFrom := 0, len(lines)
	if isRoot {
		firstN, lastFrom = atFirstLastBlocks(lines)
	}

	inCode, expanded := true, ""
	sawComment, sawDelims := false, false

	for i, line := range lines {
		kind := directive.ClassifyLanguage(line, lang)

		switch kind {
		case directive.NoDirective:
			if !inCode {
				w.putDocLine(line)

				continue
			}

			if ref, ok := w.sd.FindRef(line); ok {
				if err := w.putRef(p, line, ref); err != nil {
					return false, err
				}

				continue
			}

			w.putCodeLine(line)

		case directive.AtDoc, directive.Doc:
			if !inCode {
				w.putEndDoc()
			}

			w.putStartDoc(line, kind)
			inCode = false

		case directive.Code:
			if !inCode {
				w.putEndDoc()
			}

			w.putSentinel("@" + chomp(line))
			inCode = true

		case directive.Others, directive.All:
			word := "@others"
			if kind == directive.All {
				word = "@all"
			}

			switch {
			case !inCode:
				w.putDocLine(line)
			case expanded != "":
				w.warn(p, "multiple %s in one node: %s after %s is written as text", expanded, word, expanded)
				w.putCodeLine(line)
			default:
				expanded = word

				var err error
				if kind == directive.All {
					err = w.putAll(p, line)
				} else {
					err = w.putOthers(p, line)
				}

				if err != nil {
					return false, err
				}
			}

		case directive.Misc:
			word, _ := directive.Word(line)

			switch word {
			case "first":
				if i >= firstN {
					return false, w.misplaced(p, line)
				}
			case "last":
				if i < lastFrom {
					return false, w.misplaced(p, line)
				}
			case "comment":
				sawComment = true
			case "delims":
				sawDelims = true
			}

			w.putDirective(p, line, word)
		}
	}

	if !inCode {
		w.putEndDoc()
	}

	if sawComment && sawDelims {
		w.warn(p, "both @comment and @delims in one node")
	}

	if missingNewline(body) && lastFrom == len(lines) {
		w.putNonl()
	}

	return expanded != "", nil
}

func (w *writer) putDirective(p outline.Position, line, word string) {
	text := chomp(line)
	_, arg := directive.Word(text)

	switch word {
	case "first", "last":
		w.putSentinel("@@" + word)
	case "delims":
		w.putSentinel(text)

		start, end, err := directive.ParseDelims(arg)
		if err != nil {
			w.warn(p, "ignoring %s: %v", text, err)

			return
		}

		w.start, w.end = start, end
	case "comment":
		w.putSentinel("@" + text)

		d, err := directive.ParseCommentDelims(arg)
		if err != nil {
			w.warn(p, "ignoring %s: %v", text, err)

			return
		}

		w.start, w.end = d.Sentinel()
	case "section-delims":
		w.putSentinel("@" + text)

		sd, err := directive.ParseSectionDelims(arg)
		if err != nil {
			w.warn(p, "ignoring %s: %v", text, err)

			return
		}

		w.sd = sd
	default:
		w.putSentinel("@" + text)
	}
}

func (w *writer) putOthers(p outline.Position, line string) error {
	text := chomp(line)
	trimmed := strings.TrimLeft(text, " \t")
	indent := text[:len(text)-len(trimmed)]

	saved := w.indent
	w.indent += indent

	w.putSentinel("@+" + trimmed[1:])

	for _, c := range p.Children() {
		if w.sd.IsSectionName(c.Headline()) {
			continue
		}

		if err := w.putOthersSubtree(c); err != nil {
			return err
		}
	}

	w.putSentinel("@-others")
	w.indent = saved

	return nil
}

// putAll writes every descendant of p in outline order with its body
// copied line for line: directives, section references and doc parts in
// those bodies are not interpreted.
func (w *writer) putAll(p outline.Position, line string) error {
	text := chomp(line)
	trimmed := strings.TrimLeft(text, " \t")

	saved := w.indent
	w.indent += text[:len(text)-len(trimmed)]

	w.putSentinel("@+" + trimmed[1:])

	for _, c := range p.Subtree() {
		if err := w.putNodeSentinel(c); err != nil {
			return err
		}

		body := c.Body()
		for _, l := range splitLines(body) {
			w.putCodeLine(l)
		}

		if missingNewline(body) {
			w.putNonl()
		}
	}

	w.putSentinel("@-all")
	w.indent = saved

	return nil
}

// putOthersSubtree writes one node reached by @others. When its body has no
// @others of its own, its descendants follow in outline order.
func (w *writer) putOthersSubtree(p outline.Position) error {
	if err := w.putNodeSentinel(p); err != nil {
		return err
	}

	expanded, err := w.putBody(p, false)
	if err != nil || expanded {
		return err
	}

	for _, c := range p.Children() {
		if w.sd.IsSectionName(c.Headline()) {
			continue
		}

		if err := w.putOthersSubtree(c); err != nil {
			return err
		}
	}

	return nil
}

func (w *writer) putRef(p outline.Position, line string, ref directive.Ref) error {
	def, ok := w.findSection(p, ref.Name)

	switch {
	case !ok:
		w.warn(p, "undefined section: %s", ref.Name)
		w.putCodeLine(line)

		return nil
	case slices.Contains(w.active, def.GNX()):
		return fmt.Errorf("%w: %s in %q", ErrSectionCycle, ref.Name, p.Headline())
	case w.written[def.Key()]:
		w.warn(p, "section %s is referenced more than once: later references are written as text", ref.Name)
		w.putCodeLine(line)

		return nil
	}

	w.active = append(w.active, def.GNX())
	defer func() { w.active = w.active[:len(w.active)-1] }()

	saved := w.indent
	w.indent += ref.Indent

	w.putSentinel("@+" + ref.Name)

	if err := w.putNodeSentinel(def); err != nil {
		return err
	}

	if _, err := w.putBody(def, false); err != nil {
		return err
	}

	w.putSentinel("@-" + ref.Name)
	w.indent = saved

	if ref.Tail != "" && ref.Tail != "\n" {
		w.putSentinel("@afterref")
		w.out.WriteString(ref.Tail)

		if !strings.HasSuffix(ref.Tail, "\n") {
			w.out.WriteString("\n")
		}
	}

	return nil
}

// findSection returns the child of p that defines the named section.
func (w *writer) findSection(p outline.Position, name string) (outline.Position, bool) {
	for _, c := range p.Children() {
		if w.sd.Matches(c.Headline(), name) {
			return c, true
		}
	}

	return outline.Position{}, false
}

func (w *writer) putStartDoc(line string, kind directive.Kind) {
	text := chomp(line)

	if kind == directive.Doc {
		w.putSentinel("@+doc" + strings.TrimPrefix(text, "@doc"))
	} else {
		w.putSentinel("@+at" + text[1:])
	}

	if w.end != "" {
		w.out.WriteString(w.indent + w.start + "\n")
	}
}

func (w *writer) putEndDoc() {
	if w.end != "" {
		w.out.WriteString(w.indent + w.end + "\n")
	}
}

func (w *writer) putDocLine(line string) {
	if w.end != "" {
		// Block comment: lines are written as they are.
		trimmed := strings.TrimSpace(line)
		if trimmed == w.start || trimmed == w.end {
			w.putSentinel("@verbatim")
		}

		w.putCodeLine(line)

		return
	}

	if line == "\n" {
		w.out.WriteString(w.indent + w.start + "\n")

		return
	}

	w.out.WriteString(w.indent + w.start + " " + line)

	if !strings.HasSuffix(line, "\n") {
		w.out.WriteString("\n")
	}
}

func (w *writer) putCodeLine(line string) {
	if w.looksLikeSentinel(line) {
		w.putSentinel("@verbatim")
	}

	if line == "\n" {
		w.out.WriteString(line)

		return
	}

	w.out.WriteString(w.indent + line)

	if !strings.HasSuffix(line, "\n") {
		w.out.WriteString("\n")
	}
}

func (w *writer) looksLikeSentinel(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), w.start+"@")
}

// putNonl marks that the last line written lacks a newline in the body.
// Plain source gets the line without it.
func (w *writer) putNonl() {
	if w.opts.NoSentinels {
		if n := w.out.Len(); n > 0 && w.out.Bytes()[n-1] == '\n' {
			w.out.Truncate(n - 1)
		}

		return
	}

	w.putSentinel("@nonl")
}

// putSentinel writes one sentinel line. s starts with '@'.
func (w *writer) putSentinel(s string) {
	if w.opts.NoSentinels {
		return
	}

	if strings.HasSuffix(w.start, "@") {
		s = s[:1] + strings.ReplaceAll(s[1:], "@", "@@")
	}

	w.out.WriteString(w.indent + w.start + s + w.end + "\n")
}

func (w *writer) putNodeSentinel(p outline.Position) error {
	headline := p.Headline()
	if strings.ContainsAny(headline, "\r\n") {
		return fmt.Errorf("%w: gnx %s", ErrInvalidHeadline, p.GNX())
	}

	level := p.Level() - w.root.Level() + 1
	w.putSentinel(fmt.Sprintf("@+node:%s: %s %s", p.GNX(), stars(level), headline))
	w.written[p.Key()] = true

	return nil
}

func (w *writer) checkOrphans() error {
	for _, p := range w.root.Subtree() {
		if !w.written[p.Key()] {
			return fmt.Errorf("%w: %q (gnx %s)", ErrOrphanNode, p.Headline(), p.GNX())
		}
	}

	return nil
}

func (w *writer) misplaced(p outline.Position, line string) error {
	return fmt.Errorf("%w: %q in %q: @first and @last lines must open or close the root body",
		ErrMisplacedDirective, chomp(line), p.Headline())
}

func (w *writer) warn(p outline.Position, format string, args ...any) {
	w.warnings = append(w.warnings, Warning{
		GNX:      p.GNX(),
		Headline: p.Headline(),
		Msg:      fmt.Sprintf(format, args...),
	})
}

// stars encodes a node level: "*", "**", then "*3*", "*4*" and so on.
func stars(level int) string {
	switch level {
	case 1:
		return "*"
	case 2:
		return "**"
	default:
		return "*" + strconv.Itoa(level) + "*"
	}
}

// atFirstLastBlocks returns the number of leading @first lines and the
// index where the trailing block of @last lines starts.
func atFirstLastBlocks(lines []string) (int, int) {
	firstN := 0
	for firstN < len(lines) && isDirective(lines[firstN], "first") {
		firstN++
	}

	lastFrom := len(lines)
	for lastFrom > firstN && isDirective(lines[lastFrom-1], "last") {
		lastFrom--
	}

	return firstN, lastFrom
}

func isDirective(line, word string) bool {
	if directive.Classify(line) != directive.Misc {
		return false
	}

	w, _ := directive.Word(line)

	return w == word
}

// directiveText returns the text after an @first or @last directive.
func directiveText(line string) string {
	_, rest := directive.Word(chomp(line))

	return strings.TrimLeft(rest, " \t")
}

// splitLines splits s after each newline. The last line lacks a newline
// when s does not end with one.
func splitLines(s string) []string {
	var lines []string
	for line := range strings.Lines(s) {
		lines = append(lines, line)
	}

	return lines
}

func chomp(line string) string {
	return strings.TrimSuffix(line, "\n")
}

func missingNewline(body string) bool {
	return body != "" && !strings.HasSuffix(body, "\n")
}
