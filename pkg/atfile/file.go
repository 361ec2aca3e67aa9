package atfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/calvinalkan/outline/pkg/fs"
	"github.com/calvinalkan/outline/pkg/outline"
)

// Saver reads and writes external files through an [fs.FS].
type Saver struct {
	fs     fs.FS
	writer *fs.AtomicWriter
	logger *slog.Logger
}

// NewSaver returns a Saver over fsys. A nil logger discards log output.
func NewSaver(fsys fs.FS, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Saver{fs: fsys, writer: fs.NewAtomicWriter(fsys), logger: logger}
}

// SaveResult describes a Save.
type SaveResult struct {
	Path string
	// Bytes is the size of the encoded text.
	Bytes int
	// Unchanged is set when the file already held the text and was left
	// alone.
	Unchanged bool
	Warnings  []Warning
}

// Save writes the subtree at root to path. The file is replaced atomically
// and keeps its permissions. When the file already holds exactly the
// encoded text it is not touched.
func (s *Saver) Save(ctx context.Context, o *outline.Outline, root outline.Position, path string, opts WriteOptions) (SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return SaveResult{}, err
	}

	if opts.PathHint == "" {
		opts.PathHint = path
	}

	res, err := Write(o, root, opts)
	if err != nil {
		return SaveResult{}, fmt.Errorf("write %s: %w", path, err)
	}

	data, err := encodeText(res.Text, res.Encoding)
	if err != nil {
		return SaveResult{}, fmt.Errorf("encode %s: %w", path, err)
	}

	out := SaveResult{Path: path, Bytes: len(data), Warnings: res.Warnings}

	existing, err := s.fs.ReadFile(path)

	switch {
	case err == nil && bytes.Equal(existing, data):
		s.logger.DebugContext(ctx, "unchanged", "path", path, "bytes", len(data))

		out.Unchanged = true

		return out, nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return SaveResult{}, fmt.Errorf("read %s: %w", path, err)
	}

	wopts := s.writer.DefaultOptions()
	wopts.KeepPerm = true

	if err := s.writer.Write(path, bytes.NewReader(data), wopts); err != nil {
		return SaveResult{}, fmt.Errorf("save %s: %w", path, err)
	}

	s.logger.InfoContext(ctx, "wrote", "path", path, "bytes", len(data), "warnings", len(res.Warnings))

	return out, nil
}

// Load reads path into root. The file is decoded according to the encoding
// named by its header.
func (s *Saver) Load(ctx context.Context, o *outline.Outline, root outline.Position, path string) (ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return ReadResult{}, err
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		return ReadResult{}, fmt.Errorf("read %s: %w", path, err)
	}

	text, err := decodeText(data, headerEncoding(data))
	if err != nil {
		return ReadResult{}, fmt.Errorf("decode %s: %w", path, err)
	}

	res, err := Read(o, root, text, ReadOptions{Path: path})
	if err != nil {
		return ReadResult{}, err
	}

	for _, w := range res.Warnings {
		s.logger.DebugContext(ctx, "read warning", "path", path, "warning", w.String())
	}

	s.logger.DebugContext(ctx, "read", "path", path, "bytes", len(data), "root", res.Root.GNX())

	return res, nil
}

// headerEncoding returns the encoding named by the header line of data, or
// "" when there is none. The header itself is ASCII in every supported
// encoding.
func headerEncoding(data []byte) string {
	for line := range strings.Lines(string(data)) {
		if h, ok, err := parseHeader(line); ok {
			if err != nil {
				return ""
			}

			return h.encoding
		}
	}

	return ""
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	if isUTF8(name) {
		return nil, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}

	return enc, nil
}

func encodeText(text, name string) ([]byte, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}

	if enc == nil {
		return []byte(text), nil
	}

	return enc.NewEncoder().Bytes([]byte(text))
}

func decodeText(data []byte, name string) (string, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return "", err
	}

	if enc == nil {
		return string(data), nil
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}

	return string(out), nil
}

// Strip returns the content of the external file at path without any
// sentinel lines, as UTF-8 text.
func (s *Saver) Strip(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	text, err := decodeText(data, headerEncoding(data))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}

	out, err := StripSentinels(text)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) && fe.Path == "" {
			fe.Path = path
		}

		return "", err
	}

	return out, nil
}
