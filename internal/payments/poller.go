package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/weihengtan/motormart-backend/pkg/nets"
)

// statusQuerier is the slice of the NETS client the poller uses.
type statusQuerier interface {
	QueryStatus(ctx context.Context, txnRetrievalRef string, frontendTimeout bool) (*nets.TxnData, error)
}

// PollOutcome classifies a single poll result.
type PollOutcome string

const (
	PollOutcomePending   PollOutcome = "pending"
	PollOutcomeSucceeded PollOutcome = "succeeded"
	PollOutcomeFailed    PollOutcome = "failed"
	PollOutcomeTimedOut  PollOutcome = "timed_out"
	PollOutcomeError     PollOutcome = "error"
)

// Terminal reports whether the outcome ends the watch.
func (o PollOutcome) Terminal() bool {
	return o != PollOutcomePending
}

// PollUpdate is one observation of a QR payment's state.
type PollUpdate struct {
	Outcome PollOutcome
	Attempt int
	Data    *nets.TxnData
	Err     error
}

// StatusPoller watches a QR payment by querying NETS on a fixed interval
// until the txn resolves or the poll budget runs out.
type StatusPoller struct {
	client   statusQuerier
	interval time.Duration
	maxPolls int
}

// NewStatusPoller builds a poller with the configured cadence.
func NewStatusPoller(client statusQuerier, interval time.Duration, maxPolls int) (*StatusPoller, error) {
	if client == nil {
		return nil, fmt.Errorf("nets client required")
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxPolls <= 0 {
		maxPolls = 60
	}
	return &StatusPoller{client: client, interval: interval, maxPolls: maxPolls}, nil
}

// Watch streams poll updates for the given retrieval ref. The channel closes
// after a terminal update or when ctx is cancelled.
func (p *StatusPoller) Watch(ctx context.Context, txnRetrievalRef string) <-chan PollUpdate {
	updates := make(chan PollUpdate, 1)

	go func() {
		defer close(updates)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for attempt := 1; attempt <= p.maxPolls; attempt++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			data, err := p.client.QueryStatus(ctx, txnRetrievalRef, false)
			if err != nil {
				p.send(ctx, updates, PollUpdate{Outcome: PollOutcomeError, Attempt: attempt, Err: err})
				return
			}

			switch {
			case data.Succeeded():
				p.send(ctx, updates, PollUpdate{Outcome: PollOutcomeSucceeded, Attempt: attempt, Data: data})
				return
			case data.Failed():
				p.send(ctx, updates, PollUpdate{Outcome: PollOutcomeFailed, Attempt: attempt, Data: data})
				return
			default:
				if !p.send(ctx, updates, PollUpdate{Outcome: PollOutcomePending, Attempt: attempt, Data: data}) {
					return
				}
			}
		}

		// budget exhausted: tell NETS the buyer-facing timer elapsed so it
		// finalizes the txn, then report the last word
		data, err := p.client.QueryStatus(ctx, txnRetrievalRef, true)
		if err != nil {
			p.send(ctx, updates, PollUpdate{Outcome: PollOutcomeError, Attempt: p.maxPolls, Err: err})
			return
		}
		if data.Succeeded() {
			p.send(ctx, updates, PollUpdate{Outcome: PollOutcomeSucceeded, Attempt: p.maxPolls, Data: data})
			return
		}
		p.send(ctx, updates, PollUpdate{Outcome: PollOutcomeTimedOut, Attempt: p.maxPolls, Data: data})
	}()

	return updates
}

func (p *StatusPoller) send(ctx context.Context, updates chan<- PollUpdate, update PollUpdate) bool {
	select {
	case <-ctx.Done():
		return false
	case updates <- update:
		return true
	}
}
