package user

import (
	"context"

	coreUser "github.com/frahmantamala/company-authz/internal/core/user"
	"github.com/frahmantamala/company-authz/internal/membership"
)

// Profile is the caller's identity plus every company role they hold.
type Profile struct {
	*coreUser.User
	Memberships []*membership.Membership `json:"memberships"`
}

type MembershipLister interface {
	ListForUser(ctx context.Context, userID int64) ([]*membership.Membership, error)
}

type Service struct {
	memberships MembershipLister
}

func NewService(memberships MembershipLister) *Service {
	return &Service{memberships: memberships}
}

func (s *Service) Profile(ctx context.Context, u *coreUser.User) (*Profile, error) {
	ms, err := s.memberships.ListForUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: u, Memberships: ms}, nil
}
