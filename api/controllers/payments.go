package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/weihengtan/motormart-backend/api/responses"
	"github.com/weihengtan/motormart-backend/internal/payments"
	"github.com/weihengtan/motormart-backend/pkg/db/models"
	pkgerrors "github.com/weihengtan/motormart-backend/pkg/errors"
	"github.com/weihengtan/motormart-backend/pkg/logger"
)

type qrWatcher interface {
	Watch(ctx context.Context, txnRetrievalRef string) <-chan payments.PollUpdate
}

type refConfirmer interface {
	ConfirmByRef(ctx context.Context, externalRef string, actorID uuid.UUID) (*models.Order, error)
}

type qrStatusEvent struct {
	Outcome string `json:"outcome"`
	Attempt int    `json:"attempt"`
	Error   string `json:"error,omitempty"`
}

// QRPaymentEvents streams the state of a QR payment as server-sent events.
// The stream ends after a terminal outcome; a succeeded payment is settled
// server-side before the final event goes out, so the client only has to
// navigate to the receipt.
func QRPaymentEvents(poller qrWatcher, confirmer refConfirmer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if poller == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "qr payments unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ref := strings.TrimSpace(chi.URLParam(r, "ref"))
		if ref == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required"))
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx := r.Context()
		for update := range poller.Watch(ctx, ref) {
			event := qrStatusEvent{
				Outcome: string(update.Outcome),
				Attempt: update.Attempt,
			}
			if update.Err != nil {
				event.Error = update.Err.Error()
			}

			if update.Outcome == payments.PollOutcomeSucceeded && confirmer != nil {
				if _, err := confirmer.ConfirmByRef(ctx, ref, userID); err != nil {
					if logg != nil {
						logCtx := logg.WithField(ctx, "external_ref", ref)
						logg.Error(logCtx, "settle after qr success", err)
					}
					event.Outcome = string(payments.PollOutcomeError)
					event.Error = "payment succeeded but settlement failed"
				}
			}

			writeSSE(w, "status", event)
			flusher.Flush()

			if update.Outcome.Terminal() {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
