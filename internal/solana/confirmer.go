package solana

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Confirmation failure modes.
var (
	ErrConfirmTimeout = errors.New("confirmation timed out")
	ErrTxFailed       = errors.New("transaction failed on-chain")
)

// Default confirmation behavior.
const (
	DefaultConfirmTimeout = 90 * time.Second
	DefaultConfirmPoll    = 2 * time.Second
)

// ConfirmerOptions configures Confirmer.
type ConfirmerOptions struct {
	RPC     RPCClient
	WS      WSClient      // optional, nil falls back to polling only
	Timeout time.Duration // 0 means DefaultConfirmTimeout
	Poll    time.Duration // 0 means DefaultConfirmPoll
}

// Confirmer waits for transactions to reach confirmed commitment. The
// WebSocket path is preferred when available; status polling covers the
// gap where the subscription was registered after the cluster already
// confirmed the signature.
type Confirmer struct {
	rpc     RPCClient
	ws      WSClient
	timeout time.Duration
	poll    time.Duration
}

// NewConfirmer creates a Confirmer.
func NewConfirmer(opts ConfirmerOptions) *Confirmer {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	poll := opts.Poll
	if poll <= 0 {
		poll = DefaultConfirmPoll
	}
	return &Confirmer{
		rpc:     opts.RPC,
		ws:      opts.WS,
		timeout: timeout,
		poll:    poll,
	}
}

// Confirm blocks until the signature reaches confirmed commitment or the
// timeout elapses. A transaction that landed with an on-chain error
// returns ErrTxFailed.
func (c *Confirmer) Confirm(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var notifCh <-chan SignatureNotification
	if c.ws != nil {
		ch, err := c.ws.SubscribeSignature(ctx, signature)
		if err == nil {
			notifCh = ch
		}
		// Subscription failure is not fatal, polling still covers us
	}

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%s: %w", signature, ErrConfirmTimeout)
			}
			return ctx.Err()

		case notif, ok := <-notifCh:
			if !ok {
				// Channel closed without delivery (client shutdown);
				// keep polling
				notifCh = nil
				continue
			}
			if notif.Err != nil {
				return fmt.Errorf("%s: %w: %v", signature, ErrTxFailed, notif.Err)
			}
			return nil

		case <-ticker.C:
			statuses, err := c.rpc.GetSignatureStatuses(ctx, []string{signature})
			if err != nil {
				continue // transient, retry on next tick
			}
			if len(statuses) == 0 || statuses[0] == nil {
				continue
			}
			status := statuses[0]
			if status.Err != nil {
				return fmt.Errorf("%s: %w: %v", signature, ErrTxFailed, status.Err)
			}
			if status.Confirmed() {
				return nil
			}
		}
	}
}
