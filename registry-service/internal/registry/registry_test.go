package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/eaglebank/account-registry/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	addr1 = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	addr2 = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
)

func member(account, by string) *models.Member {
	return &models.Member{Account: account, AddedBy: by}
}

func TestAddAddRemoveLeavesOne(t *testing.T) {
	ctx := context.Background()
	r := New()

	require.NoError(t, r.Insert(ctx, member(addr1, owner)))
	require.NoError(t, r.Insert(ctx, member(addr2, owner)))
	require.NoError(t, r.Delete(ctx, addr2, addr1))

	size, err := r.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
	assert.True(t, r.Contains(addr1))
	assert.False(t, r.Contains(addr2))
}

func TestDuplicateAddIsInvalidOperation(t *testing.T) {
	ctx := context.Background()
	r := New()
	require.NoError(t, r.Insert(ctx, member(addr1, owner)))

	err := r.Insert(ctx, member("0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359", owner))
	require.ErrorIs(t, err, ErrAlreadyMember)
	require.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, 1, r.Len())
}

func TestRemoveNonMemberIsInvalidOperation(t *testing.T) {
	r := New()

	err := r.Delete(context.Background(), addr1, owner)
	require.ErrorIs(t, err, ErrNotMember)
	require.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, 0, r.Len())
}

func TestInvalidAccount(t *testing.T) {
	ctx := context.Background()
	r := New()

	require.ErrorIs(t, r.Insert(ctx, member("bob", owner)), ErrInvalidAccount)
	require.ErrorIs(t, r.Delete(ctx, "0x00", owner), ErrInvalidAccount)
	_, err := r.Get(ctx, "")
	require.ErrorIs(t, err, ErrInvalidAccount)
	assert.False(t, r.Contains("bob"))
}

func TestReAddAfterRemove(t *testing.T) {
	ctx := context.Background()
	r := New()

	require.NoError(t, r.Insert(ctx, member(addr1, owner)))
	require.NoError(t, r.Delete(ctx, addr1, owner))
	require.NoError(t, r.Insert(ctx, member(addr1, addr2)))

	m, err := r.Get(ctx, addr1)
	require.NoError(t, err)
	assert.Equal(t, addr2, m.AddedBy)
	assert.Equal(t, 1, r.Len())
}

func TestGetNormalisesAccount(t *testing.T) {
	ctx := context.Background()
	r := New()
	require.NoError(t, r.Insert(ctx, member("0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb", owner)))

	m, err := r.Get(ctx, addr2)
	require.NoError(t, err)
	assert.Equal(t, addr2, m.Account)
	assert.False(t, m.AddedAt.IsZero())

	_, err = r.Get(ctx, addr1)
	require.ErrorIs(t, err, ErrNotMember)
}

func TestListOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	r := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, a := range []string{addr2, owner, addr1} {
		require.NoError(t, r.Insert(ctx, &models.Member{Account: a, AddedBy: owner, AddedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	all, err := r.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{addr2, owner, addr1}, []string{all[0].Account, all[1].Account, all[2].Account})

	page, err := r.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, owner, page[0].Account)

	empty, err := r.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// Size must equal the number of distinct present accounts after any mix of
// successful and rejected operations.
func TestSizeMatchesMembersUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	r := New()
	accounts := make([]string, 50)
	for i := range accounts {
		accounts[i] = fmt.Sprintf("0x%040x", i+1)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, a := range accounts {
				_ = r.Insert(ctx, member(a, owner))
			}
			for i, a := range accounts {
				if i%2 == 0 {
					_ = r.Delete(ctx, a, owner)
				}
			}
		}()
	}
	wg.Wait()

	present := 0
	for _, a := range accounts {
		if r.Contains(a) {
			present++
		}
	}
	assert.Equal(t, present, r.Len())
	all, err := r.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, present)
}
