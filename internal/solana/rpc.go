package solana

import "context"

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// SendTransaction submits a fully signed transaction and returns its
	// signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetSignatureStatuses retrieves confirmation status for signatures.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetLatestBlockhash retrieves the latest blockhash.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)
}
