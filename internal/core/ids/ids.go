package ids

import (
	"io"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator issues ULIDs that sort in creation order, including ids minted
// within the same millisecond.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0),
	}
}

// New returns an id stamped with t. Callers must pass non-decreasing times
// for the ids to stay ordered.
func (g *Generator) New(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}
