package deployer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"feedo/internal/solana"
)

// Result describes a completed launch.
type Result struct {
	MintAddress string
	TxSignature string
	TokenURL    string
	TxURL       string
	MetadataURI string
}

// Request carries everything needed to launch one token.
type Request struct {
	TokenName       string
	Ticker          string
	ImagePath       string
	CreatorUsername string
}

// Options configures Deployer.
type Options struct {
	Pump      *PumpClient
	RPC       solana.RPCClient
	Confirmer *solana.Confirmer
	Signer    *solana.Keypair
}

// Deployer launches pump.fun tokens end to end: metadata upload, create
// transaction, local signing with a fresh mint keypair, submission and
// confirmation.
type Deployer struct {
	pump      *PumpClient
	rpc       solana.RPCClient
	confirmer *solana.Confirmer
	signer    *solana.Keypair
	logger    *log.Logger
}

// New creates a Deployer.
func New(opts Options) *Deployer {
	return &Deployer{
		pump:      opts.Pump,
		rpc:       opts.RPC,
		confirmer: opts.Confirmer,
		signer:    opts.Signer,
		logger:    log.New(os.Stdout, "[deployer] ", log.LstdFlags),
	}
}

// Deploy launches a token and blocks until the create transaction is
// confirmed. The mint keypair is generated per launch and discarded
// afterwards; only the mint address survives.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Result, error) {
	meta, err := d.pump.UploadMetadata(ctx, req.TokenName, req.Ticker, req.ImagePath, req.CreatorUsername)
	if err != nil {
		return nil, fmt.Errorf("upload metadata: %w", err)
	}
	d.logger.Printf("metadata uploaded for %s ($%s): %s", req.TokenName, req.Ticker, meta.MetadataURI)

	mint, err := solana.NewKeypair()
	if err != nil {
		return nil, fmt.Errorf("generate mint keypair: %w", err)
	}

	rawTx, err := d.pump.CreateTransaction(ctx, d.signer.PublicKeyBase58(), mint.PublicKeyBase58(), meta)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	tx, err := solana.DeserializeTransaction(rawTx)
	if err != nil {
		return nil, fmt.Errorf("deserialize transaction: %w", err)
	}
	if err := tx.Sign(mint, d.signer); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	signature, err := d.rpc.SendTransaction(ctx, tx.SerializeBase64())
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	d.logger.Printf("transaction sent: %s (mint %s)", signature, mint.PublicKeyBase58())

	if err := d.confirmer.Confirm(ctx, signature); err != nil {
		if errors.Is(err, solana.ErrTxFailed) {
			return nil, fmt.Errorf("confirm transaction %s: %w", signature, err)
		}
		// The transaction was accepted by the cluster; a confirmation
		// timeout does not mean the mint failed. Report success and let
		// operators check the signature.
		d.logger.Printf("WARNING: %s sent but not confirmed in time: %v", signature, err)
	}

	mintAddress := mint.PublicKeyBase58()
	return &Result{
		MintAddress: mintAddress,
		TxSignature: signature,
		TokenURL:    fmt.Sprintf("https://pump.fun/%s", mintAddress),
		TxURL:       fmt.Sprintf("https://solscan.io/tx/%s", signature),
		MetadataURI: meta.MetadataURI,
	}, nil
}
