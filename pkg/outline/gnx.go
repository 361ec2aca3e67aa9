package outline

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// GNX is a global node index: the stable identity of a node record.
// Valid values are non-empty and contain neither whitespace nor ':'.
type GNX string

// TopLevel is the parent handle used for top-level slots.
const TopLevel GNX = ""

// ValidGNX reports whether s can be used as a node identity and survive a
// round trip through a node marker.
func ValidGNX(s string) bool {
	if s == "" {
		return false
	}

	return !strings.ContainsFunc(s, func(r rune) bool {
		return r == ':' || unicode.IsSpace(r)
	})
}

const stampLayout = "20060102150405"

// Generator hands out new GNXs of the form <id>.<timestamp>.<n>.
// The timestamp is fixed when the generator is created, n increases by one
// for every call to Next.
type Generator struct {
	id    string
	stamp string
	n     int
}

// NewGenerator returns a generator for the given session id.
// An empty id is replaced by the first eight hex digits of a random UUID.
func NewGenerator(id string, now time.Time) *Generator {
	if id == "" {
		id = SessionID()
	}

	return &Generator{
		id:    id,
		stamp: now.UTC().Format(stampLayout),
	}
}

// SessionID returns a short random identifier suitable as a generator id.
func SessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ID returns the session id.
func (g *Generator) ID() string {
	return g.id
}

// Next returns the next GNX. It never returns the same value twice.
func (g *Generator) Next() GNX {
	g.n++

	return GNX(fmt.Sprintf("%s.%s.%d", g.id, g.stamp, g.n))
}
