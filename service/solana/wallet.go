package solana

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// KeypairWallet signs transactions with a local keypair loaded from a
// solana-keygen JSON file.
type KeypairWallet struct {
	key solana.PrivateKey
}

// LoadKeypairWallet reads a keypair file in solana-keygen format.
func LoadKeypairWallet(path string) (*KeypairWallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keypair from %s: %w", path, err)
	}
	return &KeypairWallet{key: key}, nil
}

// NewKeypairWallet wraps an in-memory private key.
func NewKeypairWallet(key solana.PrivateKey) *KeypairWallet {
	return &KeypairWallet{key: key}
}

// PublicKey returns the wallet's public key.
func (w *KeypairWallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// SignTransaction signs for this wallet's key. Partial signing is used so
// transactions carrying other signers pass through untouched.
func (w *KeypairWallet) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.key.PublicKey()) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	return nil
}
