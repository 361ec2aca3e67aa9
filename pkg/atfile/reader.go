package atfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/outline/pkg/directive"
	"github.com/calvinalkan/outline/pkg/outline"
)

// ReadOptions configures Read.
type ReadOptions struct {
	// Path names the file in errors and warnings.
	Path string
}

// ReadResult is the outcome of a successful Read.
type ReadResult struct {
	// Root is the root position after reading. Its gnx is the one named by
	// the file's first node sentinel.
	Root outline.Position

	// Delims are the comment delimiters named by the header.
	Delims directive.Delims

	// Encoding is the encoding named by the header, "utf-8" by default.
	Encoding string

	Warnings []Warning
}

// planNode is a node as assembled from the text, before it is committed to
// the outline.
type planNode struct {
	gnx      outline.GNX
	headline string
	lines    []string
	children []outline.GNX
	line     int

	// scratch nodes hold a repeated clone occurrence. They are only used to
	// compare against the first occurrence.
	scratch bool
}

func (n *planNode) body() string {
	return strings.Join(n.lines, "")
}

type plan struct {
	header  header
	root    *planNode
	nodes   map[outline.GNX]*planNode
	scratch []*planNode
}

type frameKind int

const (
	othersFrame frameKind = iota
	sectionFrame
	allFrame
)

type readFrame struct {
	kind   frameKind
	name   string
	node   *planNode
	indent string
	depth  int
	line   int
}

type reader struct {
	path   string
	lineNo int

	// raw text has node sentinels in preorder with no @others or section
	// frames around them.
	raw bool

	start  string
	end    string
	sd     directive.SectionDelims
	indent string

	cur    *planNode
	levels []*planNode
	frames []readFrame

	inDoc    bool
	verbatim bool
	afterref bool

	first     []string
	nextFirst int
	lastCount int

	plan     *plan
	warnings []Warning
}

// Read parses sentinel-annotated text and replaces the headline, body and
// children of root with what it describes. Records for gnxs that already
// exist in o are reused, so clones elsewhere in the outline see the new
// text.
//
// The text is parsed completely before o is touched: on error o is
// unchanged.
func Read(o *outline.Outline, root outline.Position, text string, opts ReadOptions) (ReadResult, error) {
	if root.Outline() != o || !root.Valid() {
		return ReadResult{}, ErrInvalidRoot
	}

	pl, warnings, err := parse(text, opts.Path, sectionDelims(root), false)
	if err != nil {
		return ReadResult{}, err
	}

	more, err := commit(o, root, pl)
	if err != nil {
		return ReadResult{}, &FormatError{Path: opts.Path, Err: err}
	}

	delims := directive.Delims{Line: pl.header.start}
	if pl.header.end != "" {
		delims = directive.Delims{Start: pl.header.start, End: pl.header.end}
	}

	encoding := pl.header.encoding
	if encoding == "" {
		encoding = directive.DefaultEncoding
	}

	return ReadResult{
		Root:     o.PositionAt(root.Path()...),
		Delims:   delims,
		Encoding: encoding,
		Warnings: append(warnings, more...),
	}, nil
}

func parse(text, path string, sd directive.SectionDelims, raw bool) (*plan, []Warning, error) {
	lines := splitLines(text)
	r := &reader{path: path, sd: sd, raw: raw}

	at, h, err := r.findHeader(lines)
	if err != nil {
		return nil, nil, err
	}

	r.start, r.end = h.start, h.end
	r.first = lines[:at]
	r.lineNo = at + 2

	if at+1 >= len(lines) {
		return nil, nil, r.fail(ErrMalformedSentinel, "missing root node sentinel")
	}

	_, inner, ok := r.sentinel(lines[at+1])
	if !ok || !strings.HasPrefix(inner, "@+node:") {
		return nil, nil, r.fail(ErrMalformedSentinel, "missing root node sentinel")
	}

	gnx, level, headline, err := parseNodeSentinel(inner)
	if err != nil {
		return nil, nil, r.fail(err, "")
	}

	if level != 1 {
		return nil, nil, r.fail(ErrBadLevel, "root node sentinel has level %d", level)
	}

	root := &planNode{gnx: gnx, headline: headline, line: r.lineNo}
	r.plan = &plan{header: h, root: root, nodes: map[outline.GNX]*planNode{gnx: root}}
	r.cur = root
	r.levels = []*planNode{root}

	var tail []string

	done := false

	for i := at + 2; i < len(lines) && !done; i++ {
		r.lineNo = i + 1

		done, err = r.readLine(lines[i])
		if err != nil {
			return nil, nil, err
		}

		if done {
			tail = lines[i+1:]
		}
	}

	if !done {
		return nil, nil, &FormatError{Path: path, Line: len(lines), Err: ErrMissingEnd}
	}

	r.finish(tail)

	return r.plan, r.warnings, nil
}

func (r *reader) findHeader(lines []string) (int, header, error) {
	for i, line := range lines {
		h, ok, err := parseHeader(line)
		if err != nil {
			return 0, header{}, &FormatError{Path: r.path, Line: i + 1, Err: err}
		}

		if ok {
			return i, h, nil
		}
	}

	return 0, header{}, &FormatError{Path: r.path, Err: ErrMissingHeader}
}

// readLine handles one line after the root node sentinel. It returns true
// at @-leo.
func (r *reader) readLine(raw string) (bool, error) {
	if r.afterref {
		r.afterref = false
		r.appendToLast(raw)

		return false, nil
	}

	line := raw
	if r.indent != "" && strings.HasPrefix(line, r.indent) && len(line) > len(r.indent) {
		line = line[len(r.indent):]
	}

	if r.verbatim {
		r.verbatim = false
		r.add(line)

		return false, nil
	}

	ws, inner, ok := r.sentinel(line)
	if !ok {
		if r.inDoc {
			r.addDoc(line)
		} else {
			r.add(line)
		}

		return false, nil
	}

	return r.handle(line, ws, inner)
}

func (r *reader) handle(line, ws, inner string) (bool, error) {
	var top *readFrame
	if len(r.frames) > 0 {
		top = &r.frames[len(r.frames)-1]
	}

	switch {
	case strings.HasPrefix(inner, "@+node:"):
		return false, r.node(inner)

	case inner == "@-leo":
		if top != nil {
			return false, r.fail(ErrMismatchedSentinel, "@-leo with unclosed sentinel from line %d", top.line)
		}

		return true, nil

	case hasWord(inner, "@+others"):
		r.add(ws + "@others" + inner[len("@+others"):] + "\n")
		r.push(othersFrame, "", ws)

	case inner == "@-others":
		return false, r.pop(othersFrame, "")

	case hasWord(inner, "@+all"):
		r.add(ws + "@all" + inner[len("@+all"):] + "\n")
		r.push(allFrame, "", ws)

	case inner == "@-all":
		return false, r.pop(allFrame, "")

	case top != nil && top.kind == sectionFrame && inner == "@-"+top.name:
		return false, r.pop(sectionFrame, top.name)

	case r.isSection(inner, "@+"):
		name := inner[2:]
		r.add(ws + name + "\n")
		r.push(sectionFrame, name, ws)

	case r.isSection(inner, "@-"):
		return false, r.pop(sectionFrame, inner[2:])

	case hasWord(inner, "@+at"):
		r.add("@" + inner[len("@+at"):] + "\n")
		r.inDoc = true

	case hasWord(inner, "@+doc"):
		r.add("@doc" + inner[len("@+doc"):] + "\n")
		r.inDoc = true

	case inner == "@verbatim":
		r.verbatim = true

	case inner == "@afterref":
		r.afterref = true

	case inner == "@nonl":
		if len(r.cur.lines) == 0 {
			r.warn("@nonl in an empty body")

			break
		}

		last := len(r.cur.lines) - 1
		r.cur.lines[last] = strings.TrimSuffix(r.cur.lines[last], "\n")

	case hasWord(inner, "@delims"):
		r.add(inner + "\n")

		start, end, err := directive.ParseDelims(directive.Arg(inner))
		if err != nil {
			r.warn("ignoring %s: %v", inner, err)

			break
		}

		r.start, r.end = start, end

	case strings.HasPrefix(inner, "@@"):
		r.directive(inner[1:])

	default:
		r.warn("unknown sentinel %q kept as text", inner)
		r.add(line)
	}

	return false, nil
}

// directive handles a sentinel "@@word ...", text being "@word ...".
func (r *reader) directive(text string) {
	word, _ := directive.Word(text)

	switch word {
	case "first":
		line := "@first"

		if r.nextFirst < len(r.first) {
			if t := chomp(r.first[r.nextFirst]); t != "" {
				line += " " + t
			}

			r.nextFirst++
		} else {
			r.warn("@first without a line before the header")
		}

		r.add(line + "\n")

	case "last":
		r.lastCount++

	case "c", "code":
		r.add(text + "\n")
		r.inDoc = false

	case "comment":
		r.add(text + "\n")

		d, err := directive.ParseCommentDelims(directive.Arg(text))
		if err != nil {
			r.warn("ignoring %s: %v", text, err)

			return
		}

		r.start, r.end = d.Sentinel()

	case "section-delims":
		r.add(text + "\n")

		sd, err := directive.ParseSectionDelims(directive.Arg(text))
		if err != nil {
			r.warn("ignoring %s: %v", text, err)

			return
		}

		r.sd = sd

	default:
		r.add(text + "\n")
	}
}

func (r *reader) node(inner string) error {
	gnx, level, headline, err := parseNodeSentinel(inner)
	if err != nil {
		return r.fail(err, "")
	}

	if level < 2 || level > len(r.levels)+1 {
		return r.fail(ErrBadLevel, "level %d after level %d", level, len(r.levels))
	}

	if !r.raw {
		if len(r.frames) == 0 {
			return r.fail(ErrMalformedSentinel, "node sentinel outside @others, @all or a section")
		}

		top := r.frames[len(r.frames)-1]

		switch {
		case level <= top.depth:
			return r.fail(ErrBadLevel, "level %d inside a sentinel opened at level %d", level, top.depth)
		case top.kind == sectionFrame && level != top.depth+1:
			return r.fail(ErrBadLevel, "section %s defined at level %d, want %d", top.name, level, top.depth+1)
		}
	}

	r.levels = r.levels[:level-1]
	parent := r.levels[level-2]

	for _, a := range r.levels {
		if a.gnx == gnx {
			return r.fail(ErrBadLevel, "node %s nested inside itself", gnx)
		}
	}

	n := r.newNode(gnx, headline, parent)
	r.levels = append(r.levels, n)
	r.cur = n
	r.inDoc = false

	return nil
}

func (r *reader) newNode(gnx outline.GNX, headline string, parent *planNode) *planNode {
	if !parent.scratch {
		parent.children = append(parent.children, gnx)
	}

	first, seen := r.plan.nodes[gnx]

	if !seen && !parent.scratch {
		n := &planNode{gnx: gnx, headline: headline, line: r.lineNo}
		r.plan.nodes[gnx] = n

		return n
	}

	switch {
	case !seen:
		r.warnNode(gnx, headline, "node appears only inside a repeated clone and is dropped")
	case first.headline != headline:
		r.warnNode(gnx, headline, "clone headline differs from line %d: first occurrence wins", first.line)
	}

	n := &planNode{gnx: gnx, headline: headline, line: r.lineNo, scratch: true}
	r.plan.scratch = append(r.plan.scratch, n)

	return n
}

func (r *reader) push(kind frameKind, name, ws string) {
	r.frames = append(r.frames, readFrame{
		kind:   kind,
		name:   name,
		node:   r.cur,
		indent: r.indent,
		depth:  len(r.levels),
		line:   r.lineNo,
	})
	r.indent += ws
}

func (r *reader) pop(kind frameKind, name string) error {
	closing := "@-others"

	switch kind {
	case sectionFrame:
		closing = "@-" + name
	case allFrame:
		closing = "@-all"
	}

	if len(r.frames) == 0 {
		return r.fail(ErrMismatchedSentinel, "%s without an opening sentinel", closing)
	}

	f := r.frames[len(r.frames)-1]
	if f.kind != kind || f.name != name {
		return r.fail(ErrMismatchedSentinel, "%s does not close the sentinel from line %d", closing, f.line)
	}

	r.frames = r.frames[:len(r.frames)-1]
	r.cur = f.node
	r.indent = f.indent
	r.levels = r.levels[:f.depth]
	r.inDoc = false

	return nil
}

func (r *reader) finish(tail []string) {
	root := r.plan.root

	for _, l := range tail {
		text := chomp(l)

		line := "@last"
		if text != "" {
			line += " " + text
		}

		root.lines = append(root.lines, line+l[len(text):])
	}

	if len(tail) != r.lastCount {
		r.warn("%d lines after @-leo but %d @last directives", len(tail), r.lastCount)
	}

	if unused := len(r.first) - r.nextFirst; unused > 0 {
		r.warn("%d lines before the header are not claimed by @first and are dropped", unused)
	}

	for _, s := range r.plan.scratch {
		first, ok := r.plan.nodes[s.gnx]
		if ok && first.body() != s.body() {
			r.warnings = append(r.warnings, Warning{
				GNX:      s.gnx,
				Headline: s.headline,
				Line:     s.line,
				Msg:      fmt.Sprintf("clone text differs from line %d: first occurrence wins", first.line),
			})
		}
	}
}

// sentinel reports whether line is a sentinel under the active delimiters.
// It returns the indentation and the text between the delimiters.
func (r *reader) sentinel(line string) (string, string, bool) {
	s := chomp(line)
	t := strings.TrimLeft(s, " \t")

	if len(t) < len(r.start)+1+len(r.end) || !strings.HasPrefix(t, r.start+"@") {
		return "", "", false
	}

	if r.end != "" && !strings.HasSuffix(t, r.end) {
		return "", "", false
	}

	inner := t[len(r.start) : len(t)-len(r.end)]
	if strings.HasSuffix(r.start, "@") {
		inner = inner[:1] + strings.ReplaceAll(inner[1:], "@@", "@")
	}

	return s[:len(s)-len(t)], inner, true
}

func (r *reader) isSection(inner, prefix string) bool {
	name, ok := strings.CutPrefix(inner, prefix)
	if !ok {
		return false
	}

	ref, ok := r.sd.FindRef(name)

	return ok && ref.Indent == "" && ref.Tail == ""
}

func (r *reader) add(line string) {
	r.cur.lines = append(r.cur.lines, line)
}

func (r *reader) addDoc(line string) {
	if r.end != "" {
		if t := strings.TrimSpace(line); t == r.start || t == r.end {
			return
		}

		r.add(line)

		return
	}

	s := chomp(line)
	nl := line[len(s):]

	switch {
	case s == r.start:
		r.add("\n")
	case strings.HasPrefix(s, r.start+" "):
		r.add(s[len(r.start)+1:] + nl)
	case strings.HasPrefix(s, r.start):
		r.add(s[len(r.start):] + nl)
	default:
		r.add(line)
	}
}

func (r *reader) appendToLast(raw string) {
	if len(r.cur.lines) == 0 {
		r.add(raw)

		return
	}

	last := len(r.cur.lines) - 1
	r.cur.lines[last] = chomp(r.cur.lines[last]) + raw
}

func (r *reader) fail(err error, format string, args ...any) error {
	if format != "" {
		err = fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
	}

	return &FormatError{Path: r.path, Line: r.lineNo, Err: err}
}

func (r *reader) warn(format string, args ...any) {
	r.warnNode(r.cur.gnx, r.cur.headline, format, args...)
}

func (r *reader) warnNode(gnx outline.GNX, headline, format string, args ...any) {
	r.warnings = append(r.warnings, Warning{
		GNX:      gnx,
		Headline: headline,
		Line:     r.lineNo,
		Msg:      fmt.Sprintf(format, args...),
	})
}

// parseNodeSentinel parses "@+node:<gnx>: <stars> <headline>".
func parseNodeSentinel(inner string) (outline.GNX, int, string, error) {
	rest, _ := strings.CutPrefix(inner, "@+node:")

	i := strings.Index(rest, ": ")
	if i <= 0 || !outline.ValidGNX(rest[:i]) {
		return "", 0, "", fmt.Errorf("%w: bad gnx in %q", ErrMalformedSentinel, inner)
	}

	gnx := outline.GNX(rest[:i])

	level, rest, ok := parseStars(rest[i+2:])
	if !ok {
		return "", 0, "", fmt.Errorf("%w: bad level in %q", ErrMalformedSentinel, inner)
	}

	if rest == "" {
		return gnx, level, "", nil
	}

	headline, ok := strings.CutPrefix(rest, " ")
	if !ok {
		return "", 0, "", fmt.Errorf("%w: no space before headline in %q", ErrMalformedSentinel, inner)
	}

	return gnx, level, headline, nil
}

// parseStars decodes the level written by stars.
func parseStars(s string) (int, string, bool) {
	switch {
	case strings.HasPrefix(s, "**"):
		return 2, s[2:], true
	case strings.HasPrefix(s, "*") && len(s) > 1 && '0' <= s[1] && s[1] <= '9':
		j := strings.IndexByte(s[1:], '*')
		if j < 0 {
			return 0, "", false
		}

		n, err := strconv.Atoi(s[1 : 1+j])
		if err != nil || n < 1 {
			return 0, "", false
		}

		return n, s[j+2:], true
	case strings.HasPrefix(s, "*"):
		return 1, s[1:], true
	default:
		return 0, "", false
	}
}

func hasWord(s, word string) bool {
	rest, ok := strings.CutPrefix(s, word)

	return ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t')
}

// commit applies a parsed plan to o. Every check runs before the first
// mutation. A plan cannot contain a cycle: a clone link always points to a
// node whose subtree was complete before the linking parent was opened.
func commit(o *outline.Outline, root outline.Position, pl *plan) ([]Warning, error) {
	rootGNX, fileGNX := root.GNX(), pl.root.gnx
	rootHeadline := root.Headline()

	for _, a := range root.Ancestors() {
		if _, ok := pl.nodes[a.GNX()]; ok {
			return nil, fmt.Errorf("%w: %s is an ancestor of the root", outline.ErrCycle, a.GNX())
		}
	}

	if fileGNX != rootGNX {
		if _, used := o.Lookup(fileGNX); used {
			return nil, fmt.Errorf("%w: %s", ErrRootGNX, fileGNX)
		}

		if _, ok := pl.nodes[rootGNX]; ok {
			return nil, fmt.Errorf("%w: %s", ErrRootGNX, rootGNX)
		}
	}

	if err := o.Rename(rootGNX, fileGNX); err != nil {
		return nil, err
	}

	states := make(map[outline.GNX]outline.NodeState, len(pl.nodes))

	for gnx, n := range pl.nodes {
		if _, ok := o.Lookup(gnx); !ok {
			if err := o.Register(outline.MakeNode(gnx, n.headline, "")); err != nil {
				return nil, err
			}
		}

		headline := n.headline
		if n == pl.root && rootHeadline != "" {
			headline = rootHeadline
		}

		states[gnx] = outline.NodeState{Headline: headline, Body: n.body(), Children: n.children}
	}

	if err := o.RestoreAll(states); err != nil {
		return nil, err
	}

	var warnings []Warning
	for _, v := range outline.Check(o) {
		warnings = append(warnings, Warning{GNX: v.GNX, Headline: v.Headline, Msg: v.String()})
	}

	return warnings, nil
}
