package audit

import (
	"sync"
	"time"

	"github.com/frahmantamala/company-authz/internal/core/ids"
)

// stamper hands out (timestamp, id) pairs that never go backwards, even if
// the wall clock does. Timestamps are truncated to the storage precision
// before comparison so persisted values keep the same order.
type stamper struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
	ids  *ids.Generator
}

func newStamper(now func() time.Time) *stamper {
	return &stamper{now: now, ids: ids.NewGenerator()}
}

func (s *stamper) stamp() (time.Time, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().UTC().Truncate(time.Microsecond)
	if t.Before(s.last) {
		t = s.last
	}
	s.last = t
	return t, s.ids.New(t)
}
