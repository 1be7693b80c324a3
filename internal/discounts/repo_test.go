package discounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
)

func setupDiscountTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:discounts_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS discount_codes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  kind TEXT NOT NULL,
  value NUMERIC NOT NULL,
  max_uses INTEGER,
  used_count INTEGER NOT NULL DEFAULT 0,
  min_subtotal_cents INTEGER,
  starts_at DATETIME,
  expires_at DATETIME,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func seedDiscountCode(t *testing.T, db *gorm.DB, code string, maxUses *int, usedCount int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Exec(
		`INSERT INTO discount_codes (id, code, kind, value, max_uses, used_count, is_active, created_at, updated_at)
		 VALUES (?, ?, 'percentage', 10, ?, ?, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		id, code, maxUses, usedCount,
	).Error)
	return id
}

func TestRepositoryFindByCodeCaseInsensitive(t *testing.T) {
	db := setupDiscountTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	id := seedDiscountCode(t, db, "LAUNCH20", nil, 0)

	row, err := repo.FindByCode(ctx, "  launch20 ")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, id, row.ID)

	missing, err := repo.FindByCode(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryIncrementUsageRespectsCap(t *testing.T) {
	db := setupDiscountTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	maxUses := 2
	id := seedDiscountCode(t, db, "LIMITED", &maxUses, 0)

	for i := 0; i < maxUses; i++ {
		updated, err := repo.IncrementUsage(ctx, id)
		require.NoError(t, err)
		assert.True(t, updated)
	}

	updated, err := repo.IncrementUsage(ctx, id)
	require.NoError(t, err)
	assert.False(t, updated)

	row, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, row.UsedCount)
}

func TestRepositoryIncrementUsageUnlimited(t *testing.T) {
	db := setupDiscountTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	id := seedDiscountCode(t, db, "EVERGREEN", nil, 99)

	updated, err := repo.IncrementUsage(ctx, id)
	require.NoError(t, err)
	assert.True(t, updated)

	row, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 100, row.UsedCount)
}

func TestRepositoryCreateAndDeactivate(t *testing.T) {
	db := setupDiscountTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	expires := time.Now().Add(24 * time.Hour).UTC()
	code := &models.DiscountCode{
		ID:        uuid.New(),
		Code:      "WELCOME5",
		Kind:      enums.DiscountKindFixed,
		Value:     decimal.RequireFromString("5"),
		ExpiresAt: &expires,
		IsActive:  true,
	}
	require.NoError(t, repo.Create(ctx, code))

	require.NoError(t, repo.Deactivate(ctx, code.ID))

	row, err := repo.FindByID(ctx, code.ID)
	require.NoError(t, err)
	assert.False(t, row.IsActive)

	rows, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
