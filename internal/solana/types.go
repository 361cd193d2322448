package solana

// SignatureStatus is one entry from getSignatureStatuses. A nil entry in
// the result slice means the cluster has not seen the signature.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64
	ConfirmationStatus string // "processed", "confirmed" or "finalized"
	Err                interface{}
}

// Confirmed reports whether the status has reached at least the
// "confirmed" commitment.
func (s *SignatureStatus) Confirmed() bool {
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}

// Blockhash is the result of getLatestBlockhash.
type Blockhash struct {
	Blockhash            string
	LastValidBlockHeight int64
}
