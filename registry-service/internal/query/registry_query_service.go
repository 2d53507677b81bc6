package query

import (
	"context"

	"github.com/eaglebank/account-registry/registry-service/internal/registry"
	"github.com/eaglebank/account-registry/shared/cqrs"
	"github.com/eaglebank/account-registry/shared/models"
	"github.com/eaglebank/account-registry/shared/utils"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

type MemberReader interface {
	Size(ctx context.Context) (int, error)
	Get(ctx context.Context, account string) (*models.Member, error)
	List(ctx context.Context, offset, limit int) ([]models.Member, error)
}

type ActivityReader interface {
	Recent(ctx context.Context, limit int) ([]models.Activity, error)
}

type RegistryQueryService struct {
	members  MemberReader
	activity ActivityReader
}

func NewRegistryQueryService(members MemberReader, activity ActivityReader) *RegistryQueryService {
	return &RegistryQueryService{members: members, activity: activity}
}

// Size returns the number of present accounts.
func (s *RegistryQueryService) Size(ctx context.Context, _ cqrs.SizeQuery) (int, error) {
	return s.members.Size(ctx)
}

func (s *RegistryQueryService) GetMember(ctx context.Context, q cqrs.GetMemberQuery) (*models.Member, error) {
	account, err := utils.NormalizeAddress(q.Account)
	if err != nil {
		return nil, registry.ErrInvalidAccount
	}
	return s.members.Get(ctx, account)
}

func (s *RegistryQueryService) ListMembers(ctx context.Context, q cqrs.ListMembersQuery) ([]models.Member, error) {
	return s.members.List(ctx, max(q.Offset, 0), clampPage(q.Limit))
}

func (s *RegistryQueryService) ListActivity(ctx context.Context, q cqrs.ListActivityQuery) ([]models.Activity, error) {
	return s.activity.Recent(ctx, clampPage(q.Limit))
}

func clampPage(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return min(limit, MaxPageSize)
}
