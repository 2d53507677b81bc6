// Package registry holds the account registry state machine: a set of
// account addresses in which every account is either present or absent.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eaglebank/account-registry/shared/models"
	"github.com/eaglebank/account-registry/shared/utils"
	"github.com/ethereum/go-ethereum/common"
)

// Registry is an in-memory member set. It satisfies the same store contract
// as the PostgreSQL write repository. The zero value is not usable; call New.
type Registry struct {
	mu      sync.RWMutex
	members map[common.Address]models.Member
}

func New() *Registry {
	return &Registry{members: make(map[common.Address]models.Member)}
}

func parse(account string) (common.Address, error) {
	addr, err := utils.ParseAddress(account)
	if err != nil {
		return common.Address{}, ErrInvalidAccount
	}
	return addr, nil
}

// Insert adds member. A present account yields ErrAlreadyMember.
func (r *Registry) Insert(_ context.Context, member *models.Member) error {
	addr, err := parse(member.Account)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[addr]; ok {
		return ErrAlreadyMember
	}
	m := *member
	m.Account = addr.Hex()
	if m.AddedAt.IsZero() {
		m.AddedAt = time.Now().UTC()
	}
	r.members[addr] = m
	return nil
}

// Delete removes account. An absent account yields ErrNotMember.
func (r *Registry) Delete(_ context.Context, account, _ string) error {
	addr, err := parse(account)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[addr]; !ok {
		return ErrNotMember
	}
	delete(r.members, addr)
	return nil
}

// Size reports the number of present accounts.
func (r *Registry) Size(context.Context) (int, error) {
	return r.Len(), nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Registry) Contains(account string) bool {
	addr, err := parse(account)
	if err != nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[addr]
	return ok
}

func (r *Registry) Get(_ context.Context, account string) (*models.Member, error) {
	addr, err := parse(account)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[addr]
	if !ok {
		return nil, ErrNotMember
	}
	return &m, nil
}

// List returns members ordered by AddedAt, then account, skipping offset
// entries. A non-positive limit returns everything after offset.
func (r *Registry) List(_ context.Context, offset, limit int) ([]models.Member, error) {
	r.mu.RLock()
	all := make([]models.Member, 0, len(r.members))
	for _, m := range r.members {
		all = append(all, m)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].AddedAt.Equal(all[j].AddedAt) {
			return all[i].Account < all[j].Account
		}
		return all[i].AddedAt.Before(all[j].AddedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []models.Member{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
