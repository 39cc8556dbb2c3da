package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/secretsanta-backend/internal/domain"
)

func SeedRaffle(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) *types.Raffle {
	tb.Helper()
	r := &types.Raffle{
		ID:          uuid.New(),
		OwnerUserID: ownerID,
		Name:        "office party",
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed raffle: %v", err)
	}
	return r
}

// SeedMember creates a member with a complete profile for a fresh user.
func SeedMember(tb testing.TB, ctx context.Context, tx *gorm.DB, raffleID uuid.UUID, name string) *types.Member {
	tb.Helper()
	m := &types.Member{
		ID:          uuid.New(),
		RaffleID:    raffleID,
		UserID:      uuid.New(),
		DisplayName: name,
		Wishlist:    "socks",
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed member: %v", err)
	}
	return m
}

func SeedMembers(tb testing.TB, ctx context.Context, tx *gorm.DB, raffleID uuid.UUID, n int) []*types.Member {
	tb.Helper()
	out := make([]*types.Member, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, SeedMember(tb, ctx, tx, raffleID, fmt.Sprintf("member-%d", i)))
	}
	return out
}
