package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	signatureLength = 64
	publicKeyLength = 32
)

// VersionedTransaction is the wire form of a Solana transaction:
// a compact-u16 signature count, the signatures, and the serialized
// message. Only the fields needed for signing are parsed out of the
// message; the raw bytes are kept intact for re-serialization.
type VersionedTransaction struct {
	Signatures [][]byte
	Message    []byte

	numRequiredSignatures int
	signerKeys            [][]byte
}

// DeserializeTransaction parses a serialized transaction, legacy or v0.
func DeserializeTransaction(data []byte) (*VersionedTransaction, error) {
	numSigs, offset, err := decodeCompactU16(data, 0)
	if err != nil {
		return nil, fmt.Errorf("read signature count: %w", err)
	}

	sigs := make([][]byte, 0, numSigs)
	for i := 0; i < numSigs; i++ {
		if offset+signatureLength > len(data) {
			return nil, fmt.Errorf("truncated signature %d", i)
		}
		sig := make([]byte, signatureLength)
		copy(sig, data[offset:offset+signatureLength])
		sigs = append(sigs, sig)
		offset += signatureLength
	}

	message := data[offset:]
	tx := &VersionedTransaction{
		Signatures: sigs,
		Message:    message,
	}
	if err := tx.parseMessageHeader(); err != nil {
		return nil, err
	}
	return tx, nil
}

// parseMessageHeader extracts the required-signer keys from the message
// prefix. Signature slot i belongs to static account key i.
func (tx *VersionedTransaction) parseMessageHeader() error {
	msg := tx.Message
	offset := 0

	if len(msg) == 0 {
		return fmt.Errorf("empty message")
	}
	// v0 messages carry a version prefix byte with the high bit set;
	// legacy messages start directly with the header.
	if msg[0]&0x80 != 0 {
		version := int(msg[0] & 0x7f)
		if version != 0 {
			return fmt.Errorf("unsupported message version %d", version)
		}
		offset = 1
	}

	if offset+3 > len(msg) {
		return fmt.Errorf("truncated message header")
	}
	tx.numRequiredSignatures = int(msg[offset])
	offset += 3

	numKeys, offset, err := decodeCompactU16(msg, offset)
	if err != nil {
		return fmt.Errorf("read account key count: %w", err)
	}
	if tx.numRequiredSignatures > numKeys {
		return fmt.Errorf("header requires %d signers but message has %d keys", tx.numRequiredSignatures, numKeys)
	}

	tx.signerKeys = make([][]byte, 0, tx.numRequiredSignatures)
	for i := 0; i < tx.numRequiredSignatures; i++ {
		if offset+publicKeyLength > len(msg) {
			return fmt.Errorf("truncated account key %d", i)
		}
		tx.signerKeys = append(tx.signerKeys, msg[offset:offset+publicKeyLength])
		offset += publicKeyLength
	}
	return nil
}

// Sign fills the signature slot for each keypair whose public key is
// among the message's required signers. Keys that do not appear in the
// signer list are an error.
func (tx *VersionedTransaction) Sign(keypairs ...*Keypair) error {
	if len(tx.Signatures) < tx.numRequiredSignatures {
		sigs := make([][]byte, tx.numRequiredSignatures)
		copy(sigs, tx.Signatures)
		for i := range sigs {
			if sigs[i] == nil {
				sigs[i] = make([]byte, signatureLength)
			}
		}
		tx.Signatures = sigs
	}

	for _, kp := range keypairs {
		pub := kp.PublicKey()
		slot := -1
		for i, key := range tx.signerKeys {
			if bytes.Equal(key, pub) {
				slot = i
				break
			}
		}
		if slot < 0 {
			return fmt.Errorf("key %s is not a required signer", base58.Encode(pub))
		}
		tx.Signatures[slot] = kp.Sign(tx.Message)
	}
	return nil
}

// Verify checks every filled signature slot against the message.
func (tx *VersionedTransaction) Verify() error {
	for i, key := range tx.signerKeys {
		if i >= len(tx.Signatures) {
			return fmt.Errorf("missing signature %d", i)
		}
		if !ed25519.Verify(ed25519.PublicKey(key), tx.Message, tx.Signatures[i]) {
			return fmt.Errorf("signature %d is invalid for %s", i, base58.Encode(key))
		}
	}
	return nil
}

// Serialize re-encodes the transaction to wire form.
func (tx *VersionedTransaction) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(encodeCompactU16(len(tx.Signatures)))
	for _, sig := range tx.Signatures {
		buf.Write(sig)
	}
	buf.Write(tx.Message)
	return buf.Bytes()
}

// SerializeBase64 returns the wire form in base64, as sendTransaction
// expects.
func (tx *VersionedTransaction) SerializeBase64() string {
	return base64.StdEncoding.EncodeToString(tx.Serialize())
}

// Signature returns the base58 first signature, which doubles as the
// transaction ID.
func (tx *VersionedTransaction) Signature() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return base58.Encode(tx.Signatures[0])
}

// SignatureBytes returns the raw signature in slot i, or nil when the
// slot does not exist.
func (tx *VersionedTransaction) SignatureBytes(i int) []byte {
	if i < 0 || i >= len(tx.Signatures) {
		return nil
	}
	return tx.Signatures[i]
}

// decodeCompactU16 reads Solana's compact-u16 (shortvec) encoding:
// little-endian base-128 varint capped at 3 bytes.
func decodeCompactU16(data []byte, offset int) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if offset >= len(data) {
			return 0, 0, fmt.Errorf("truncated compact-u16")
		}
		b := data[offset]
		offset++
		value |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, offset, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}

func encodeCompactU16(value int) []byte {
	var out []byte
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value == 0 {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}
