package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/api/responses"
	"github.com/weihengtan/motormart-backend/api/validators"
	"github.com/weihengtan/motormart-backend/internal/wallet"
	"github.com/weihengtan/motormart-backend/pkg/db/models"
	"github.com/weihengtan/motormart-backend/pkg/enums"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/logger"
)

// WalletBalance returns the authenticated user's current balance.
func WalletBalance(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"user_id":       userID,
			"balance_cents": balance,
			"currency":      enums.CurrencySGD,
		})
	}
}

// WalletTransactions lists the user's ledger entries, newest first.
func WalletTransactions(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := svc.Transactions(r.Context(), userID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]walletTransactionResponse, 0, len(txns))
		for i := range txns {
			items = append(items, newWalletTransactionResponse(&txns[i]))
		}
		responses.WriteSuccess(w, map[string]any{"transactions": items})
	}
}

// WalletTopUp opens a gateway intent that deposits into the wallet once the
// rail confirms payment. The wallet itself is not a valid top-up rail.
func WalletTopUp(svc wallet.TopUpService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload topUpRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		topup, err := svc.Begin(r.Context(), userID, payload.AmountCents, method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newTopUpResponse(topup))
	}
}

// WalletTopUpConfirm resolves a pending top-up after the buyer's client
// reports gateway success; webhooks land the same deposit idempotently.
func WalletTopUpConfirm(svc wallet.TopUpService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload topUpConfirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		topup, err := svc.Get(r.Context(), payload.TopUpID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if topup.UserID != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "top-up belongs to another user"))
			return
		}

		confirmed, err := svc.Confirm(r.Context(), payload.TopUpID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTopUpResponse(confirmed))
	}
}

type topUpRequest struct {
	AmountCents   int64  `json:"amount_cents" validate:"required,min=1"`
	PaymentMethod string `json:"payment_method" validate:"required"`
}

type topUpConfirmRequest struct {
	TopUpID uuid.UUID `json:"topup_id" validate:"required"`
}

type topUpResponse struct {
	TopUpID      uuid.UUID  `json:"topup_id"`
	Status       string     `json:"status"`
	Method       string     `json:"method"`
	AmountCents  int64      `json:"amount_cents"`
	Currency     string     `json:"currency"`
	ExternalRef  *string    `json:"external_ref,omitempty"`
	ClientSecret *string    `json:"client_secret,omitempty"`
	QRCodeData   *string    `json:"qr_code_data,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreditedAt   *time.Time `json:"credited_at,omitempty"`
}

func newTopUpResponse(topup *models.WalletTopUp) topUpResponse {
	if topup == nil {
		return topUpResponse{}
	}
	return topUpResponse{
		TopUpID:      topup.ID,
		Status:       string(topup.Status),
		Method:       string(topup.Method),
		AmountCents:  topup.AmountCents,
		Currency:     string(topup.Currency),
		ExternalRef:  topup.ExternalRef,
		ClientSecret: topup.ClientSecret,
		QRCodeData:   topup.QRCodeData,
		ExpiresAt:    topup.ExpiresAt,
		CreditedAt:   topup.CreditedAt,
	}
}

type walletTransactionResponse struct {
	TransactionID      uuid.UUID `json:"transaction_id"`
	Kind               string    `json:"kind"`
	AmountCents        int64     `json:"amount_cents"`
	BalanceBeforeCents int64     `json:"balance_before_cents"`
	BalanceAfterCents  int64     `json:"balance_after_cents"`
	Description        string    `json:"description"`
	Reference          *string   `json:"reference,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func newWalletTransactionResponse(txn *models.WalletTransaction) walletTransactionResponse {
	return walletTransactionResponse{
		TransactionID:      txn.ID,
		Kind:               string(txn.Kind),
		AmountCents:        txn.AmountCents,
		BalanceBeforeCents: txn.BalanceBeforeCents,
		BalanceAfterCents:  txn.BalanceAfterCents,
		Description:        txn.Description,
		Reference:          txn.Reference,
		CreatedAt:          txn.CreatedAt,
	}
}
