package inventory

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
)

func TestReserveProducts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	stocked := seedProduct(t, db, "Alloy Wheels", enums.ProductKindStocked, 5)
	unique := seedProduct(t, db, "1967 Mustang", enums.ProductKindUnique, 1)

	requests := []ReservationRequest{
		{ProductID: stocked, Qty: 3},
		{ProductID: stocked, Qty: 4},
		{ProductID: unique, Qty: 1},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		results, terr := ReserveProducts(ctx, tx, requests)
		if terr != nil {
			return terr
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if !results[0].Reserved || results[0].Reason != "" {
			t.Fatalf("expected first reservation to succeed: %+v", results[0])
		}
		if results[1].Reserved {
			t.Fatalf("expected second reservation to fail")
		}
		if !strings.Contains(results[1].Reason, "has only 2 available") {
			t.Fatalf("unexpected shortfall reason: %q", results[1].Reason)
		}
		if !results[2].Reserved {
			t.Fatalf("expected unique reservation to succeed: %+v", results[2])
		}
		if results[2].Product == nil || results[2].Product.Title != "1967 Mustang" {
			t.Fatalf("expected unique snapshot to be captured: %+v", results[2].Product)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve transaction: %v", err)
	}

	if qty := productQuantity(t, db, stocked); qty != 2 {
		t.Fatalf("expected stocked quantity 2, got %d", qty)
	}
	if productExists(t, db, unique) {
		t.Fatal("expected unique product row to be deleted")
	}
}

func TestReserveProductsMissingAndInactive(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	inactive := seedProduct(t, db, "Retired Spoiler", enums.ProductKindStocked, 5)
	if err := db.Exec(`UPDATE products SET is_active = 0 WHERE id = ?`, inactive).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	results, err := ReserveProducts(ctx, db, []ReservationRequest{
		{ProductID: uuid.New(), Qty: 1},
		{ProductID: inactive, Qty: 1},
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if results[0].Reserved || results[0].Reason != "product not found" {
		t.Fatalf("unexpected result for missing product: %+v", results[0])
	}
	if results[1].Reserved || !strings.Contains(results[1].Reason, "no longer available") {
		t.Fatalf("unexpected result for inactive product: %+v", results[1])
	}
}

func TestReserveProductsUniqueQtyGuard(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	unique := seedProduct(t, db, "Signed Helmet", enums.ProductKindUnique, 1)

	results, err := ReserveProducts(ctx, db, []ReservationRequest{{ProductID: unique, Qty: 2}})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if results[0].Reserved || !strings.Contains(results[0].Reason, "one of a kind") {
		t.Fatalf("unexpected result: %+v", results[0])
	}
	if !productExists(t, db, unique) {
		t.Fatal("unique product should survive a rejected reservation")
	}
}

func TestReserveProductsConcurrentLastUnits(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	// Shared-cache sqlite locks the whole database per writer; a single
	// connection serializes the racing transactions instead of erroring
	// with SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	product := seedProduct(t, db, "Carbon Hood", enums.ProductKindStocked, 3)

	const buyers = 8
	reserved := make(chan bool, buyers)
	for i := 0; i < buyers; i++ {
		go func() {
			var ok bool
			err := db.Transaction(func(tx *gorm.DB) error {
				results, terr := ReserveProducts(ctx, tx, []ReservationRequest{{ProductID: product, Qty: 1}})
				if terr != nil {
					return terr
				}
				if !results[0].Reserved {
					return pkgerrors.New(pkgerrors.CodeInsufficientInventory, results[0].Reason)
				}
				ok = true
				return nil
			})
			if err != nil && ok {
				t.Errorf("reserve transaction: %v", err)
			}
			reserved <- ok && err == nil
		}()
	}

	var won int
	for i := 0; i < buyers; i++ {
		if <-reserved {
			won++
		}
	}
	if won != 3 {
		t.Fatalf("reservations won = %d, the 3 last units must sell exactly once each", won)
	}
	if qty := productQuantity(t, db, product); qty != 0 {
		t.Fatalf("expected quantity 0 after the stock is gone, got %d", qty)
	}
}

func TestReserveProductsInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Brake Pads", enums.ProductKindStocked, 5)

	_, err := ReserveProducts(ctx, db, []ReservationRequest{{ProductID: product, Qty: 0}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRestockProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	stocked := seedProduct(t, db, "Oil Filter", enums.ProductKindStocked, 1)
	unique := seedProduct(t, db, "Prototype Dash", enums.ProductKindUnique, 1)

	updated, err := RestockProduct(ctx, db, stocked, 3)
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if !updated {
		t.Fatal("expected stocked restock to update a row")
	}
	if qty := productQuantity(t, db, stocked); qty != 4 {
		t.Fatalf("expected quantity 4, got %d", qty)
	}

	updated, err = RestockProduct(ctx, db, unique, 1)
	if err != nil {
		t.Fatalf("restock unique: %v", err)
	}
	if updated {
		t.Fatal("unique products must never be restocked")
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	ddl := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  kind TEXT NOT NULL DEFAULT 'stocked',
  title TEXT NOT NULL,
  description TEXT,
  price_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'SGD',
  quantity INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(ddl).Error; err != nil {
		t.Fatalf("create products table: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, title string, kind enums.ProductKind, qty int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := db.Exec(
		`INSERT INTO products (id, seller_id, kind, title, price_cents, quantity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 100000, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		id, uuid.New(), kind, title, qty,
	).Error
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func productQuantity(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var qty int
	if err := db.Raw(`SELECT quantity FROM products WHERE id = ?`, id).Scan(&qty).Error; err != nil {
		t.Fatalf("load quantity: %v", err)
	}
	return qty
}

func productExists(t *testing.T, db *gorm.DB, id uuid.UUID) bool {
	t.Helper()
	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM products WHERE id = ?`, id).Scan(&count).Error; err != nil {
		t.Fatalf("count products: %v", err)
	}
	return count > 0
}
