package audit

import (
	"net/url"
	"strconv"
	"time"

	"github.com/frahmantamala/company-authz/internal"
)

type ListResponse struct {
	Entries []*Entry `json:"entries"`
	Count   int      `json:"count"`
}

// FilterFromQuery reads from, to, security_only, actor_id and limit.
func FilterFromQuery(q url.Values) (Filter, error) {
	var f Filter

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, internal.NewValidationFieldError("from", "from must be an RFC3339 timestamp", internal.ErrCodeValidationFailed)
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, internal.NewValidationFieldError("to", "to must be an RFC3339 timestamp", internal.ErrCodeValidationFailed)
		}
		f.To = &t
	}
	if v := q.Get("security_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, internal.NewValidationFieldError("security_only", "security_only must be a boolean", internal.ErrCodeValidationFailed)
		}
		if b {
			f.IsSecurityEvent = &b
		}
	}
	if v := q.Get("actor_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, internal.NewValidationFieldError("actor_id", "actor_id must be a positive integer", internal.ErrCodeValidationFailed)
		}
		f.ActorID = &id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, internal.NewValidationFieldError("limit", "limit must be an integer", internal.ErrCodeValidationFailed)
		}
		f.Limit = n
	}

	return f, f.Validate()
}
