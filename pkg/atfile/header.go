package atfile

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	headerTag     = "@+leo"
	formatVersion = 5
)

// header is the parsed first sentinel line of a file:
//
//	<start>@+leo-ver=5-thin[-encoding=<enc>,.]<end>
type header struct {
	start    string
	end      string
	version  int
	encoding string
}

// headerSentinel returns the sentinel text (without delimiters) announcing
// the format and, when it is not UTF-8, the encoding.
func headerSentinel(encoding string) string {
	s := headerTag + "-ver=" + strconv.Itoa(formatVersion) + "-thin"
	if !isUTF8(encoding) {
		s += "-encoding=" + encoding + ",."
	}

	return s
}

// parseHeader reports whether line is a header line and parses it. A line
// that contains the header tag but an unsupported format is an error.
func parseHeader(line string) (header, bool, error) {
	line = strings.TrimSuffix(line, "\n")

	i := strings.Index(line, headerTag)
	if i <= 0 {
		return header{}, false, nil
	}

	h := header{start: line[:i]}
	rest := line[i+len(headerTag):]

	ver, ok := strings.CutPrefix(rest, "-ver=")
	if !ok {
		return header{}, true, fmt.Errorf("%w: no version in %q", ErrMissingHeader, line)
	}

	n := 0
	for n < len(ver) && '0' <= ver[n] && ver[n] <= '9' {
		n++
	}

	h.version, _ = strconv.Atoi(ver[:n])
	rest = ver[n:]

	rest, thin := strings.CutPrefix(rest, "-thin")

	if (h.version != 4 && h.version != 5) || !thin {
		return header{}, true, fmt.Errorf("%w: unsupported format in %q", ErrMissingHeader, line)
	}

	if enc, ok := strings.CutPrefix(rest, "-encoding="); ok {
		j := strings.Index(enc, ",.")
		if j <= 0 {
			return header{}, true, fmt.Errorf("%w: malformed encoding in %q", ErrMissingHeader, line)
		}

		h.encoding = enc[:j]
		rest = enc[j+2:]
	}

	h.end = rest

	return h, true, nil
}

func isUTF8(encoding string) bool {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return true
	default:
		return false
	}
}
