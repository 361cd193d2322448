package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature subscribes to the confirmation of a single
	// signature. The channel receives exactly one notification and is
	// then closed; the server removes the subscription after firing.
	SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification is a signatureSubscribe result. A non-nil Err
// means the transaction failed on-chain.
type SignatureNotification struct {
	Signature string
	Slot      int64
	Err       interface{}
}
