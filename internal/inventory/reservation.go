package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
)

// ReservationRequest asks for qty units of a product to be taken off the shelf.
type ReservationRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// ReservationResult reports the outcome for a single request. Product carries
// the row as it looked before the reservation so callers can still build line
// items for unique products whose row is deleted on success.
type ReservationResult struct {
	ProductID uuid.UUID
	Reserved  bool
	Reason    string
	Product   *models.Product
}

// ReserveProducts decrements stocked quantities and removes unique rows inside
// the caller's transaction. Shortfalls are reported per request rather than
// aborting the batch, so a checkout can surface every unfulfillable line at
// once.
func ReserveProducts(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) ([]ReservationResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product reservation requires a transaction")
	}

	results := make([]ReservationResult, len(requests))
	for i, req := range requests {
		if req.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if req.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation qty must be at least 1")
		}

		result := ReservationResult{ProductID: req.ProductID}

		var product models.Product
		err := tx.WithContext(ctx).Where("id = ?", req.ProductID).First(&product).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Reason = "product not found"
				results[i] = result
				continue
			}
			return nil, err
		}
		result.Product = &product

		if !product.IsActive {
			result.Reason = fmt.Sprintf("%s is no longer available", product.Title)
			results[i] = result
			continue
		}

		switch product.Kind {
		case enums.ProductKindUnique:
			if req.Qty != 1 {
				result.Reason = fmt.Sprintf("%s is one of a kind", product.Title)
				results[i] = result
				continue
			}
			res := tx.WithContext(ctx).Exec(
				`DELETE FROM products WHERE id = ? AND kind = ?`,
				req.ProductID, enums.ProductKindUnique,
			)
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 0 {
				// the row disappeared between the read and the delete
				result.Reason = fmt.Sprintf("%s has already been sold", product.Title)
				results[i] = result
				continue
			}
		case enums.ProductKindStocked:
			res := tx.WithContext(ctx).Exec(
				`UPDATE products
				 SET quantity = quantity - ?, updated_at = CURRENT_TIMESTAMP
				 WHERE id = ? AND quantity >= ?`,
				req.Qty, req.ProductID, req.Qty,
			)
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 0 {
				result.Reason = fmt.Sprintf("%s has only %d available", product.Title, product.Quantity)
				results[i] = result
				continue
			}
		default:
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "unknown product kind").
				WithDetails(map[string]string{"kind": product.Kind.String()})
		}

		result.Reserved = true
		results[i] = result
	}

	return results, nil
}

// RestockProduct returns qty units of a stocked product to the shelf and
// reports whether a row was updated. Unique products are deleted at sale and
// never restored, so the kind guard makes this a no-op for them.
func RestockProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error) {
	if tx == nil {
		return false, pkgerrors.New(pkgerrors.CodeInternal, "product restock requires a transaction")
	}
	if qty < 1 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "restock qty must be at least 1")
	}

	res := tx.WithContext(ctx).Exec(
		`UPDATE products
		 SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND kind = ?`,
		qty, productID, enums.ProductKindStocked,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
