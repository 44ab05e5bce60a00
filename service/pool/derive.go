package pool

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// CPMM program PDA seeds. These must match the on-chain program exactly or
// every derived address is wrong.
var (
	seedAmmConfig   = []byte("amm_config")
	seedAuthority   = []byte("vault_and_lp_mint_auth_seed")
	seedPool        = []byte("pool")
	seedLpMint      = []byte("pool_lp_mint")
	seedVault       = []byte("pool_vault")
	seedObservation = []byte("observation")
	seedMetadata    = []byte("metadata")
)

// Keys holds every derived address for one CPMM pool. All fields are pure
// functions of (program, config, mint pair); no chain access is needed.
type Keys struct {
	ProgramID solana.PublicKey
	AmmConfig solana.PublicKey
	Authority solana.PublicKey

	// MintA/MintB are the pool's mints in canonical order. The order the
	// caller passed them in is irrelevant.
	MintA solana.PublicKey
	MintB solana.PublicKey

	PoolState        solana.PublicKey
	LpMint           solana.PublicKey
	VaultA           solana.PublicKey
	VaultB           solana.PublicKey
	ObservationState solana.PublicKey

	// LpMetadata is the token-metadata account for the LP mint, owned by
	// the metadata program rather than the CPMM program.
	LpMetadata solana.PublicKey
}

// Swapped reports whether the caller's (mintX, mintY) pair was reordered
// during canonicalization. Callers use this to map their own amounts onto
// the canonical A/B slots.
func (k Keys) Swapped(mintX solana.PublicKey) bool {
	return !k.MintA.Equals(mintX)
}

// OrderMints returns the pair in canonical byte-lexicographic order.
func OrderMints(x, y solana.PublicKey) (a, b solana.PublicKey) {
	if bytes.Compare(x.Bytes(), y.Bytes()) < 0 {
		return x, y
	}
	return y, x
}

// Derive computes all pool addresses for the given mint pair. The same two
// mints always produce the same addresses regardless of argument order.
func Derive(cpmmProgram, metadataProgram solana.PublicKey, configID uint64, mintX, mintY solana.PublicKey) (Keys, error) {
	if mintX.Equals(mintY) {
		return Keys{}, fmt.Errorf("pool mints must differ, got %s twice", mintX)
	}

	mintA, mintB := OrderMints(mintX, mintY)

	configSeed := make([]byte, 8)
	binary.BigEndian.PutUint64(configSeed, configID)
	ammConfig, _, err := solana.FindProgramAddress([][]byte{seedAmmConfig, configSeed}, cpmmProgram)
	if err != nil {
		return Keys{}, fmt.Errorf("derive amm config: %w", err)
	}

	authority, _, err := solana.FindProgramAddress([][]byte{seedAuthority}, cpmmProgram)
	if err != nil {
		return Keys{}, fmt.Errorf("derive authority: %w", err)
	}

	poolState, _, err := solana.FindProgramAddress(
		[][]byte{seedPool, ammConfig.Bytes(), mintA.Bytes(), mintB.Bytes()}, cpmmProgram)
	if err != nil {
		return Keys{}, fmt.Errorf("derive pool state: %w", err)
	}

	lpMint, _, err := solana.FindProgramAddress([][]byte{seedLpMint, poolState.Bytes()}, cpmmProgram)
	if err != nil {
		return Keys{}, fmt.Errorf("derive lp mint: %w", err)
	}

	vaultA, _, err := solana.FindProgramAddress(
		[][]byte{seedVault, poolState.Bytes(), mintA.Bytes()}, cpmmProgram)
	if err != nil {
		return Keys{}, fmt.Errorf("derive vault A: %w", err)
	}

	vaultB, _, err := solana.FindProgramAddress(
		[][]byte{seedVault, poolState.Bytes(), mintB.Bytes()}, cpmmProgram)
	if err != nil {
		return Keys{}, fmt.Errorf("derive vault B: %w", err)
	}

	observation, _, err := solana.FindProgramAddress(
		[][]byte{seedObservation, poolState.Bytes()}, cpmmProgram)
	if err != nil {
		return Keys{}, fmt.Errorf("derive observation state: %w", err)
	}

	lpMetadata, _, err := solana.FindProgramAddress(
		[][]byte{seedMetadata, metadataProgram.Bytes(), lpMint.Bytes()}, metadataProgram)
	if err != nil {
		return Keys{}, fmt.Errorf("derive lp metadata: %w", err)
	}

	return Keys{
		ProgramID:        cpmmProgram,
		AmmConfig:        ammConfig,
		Authority:        authority,
		MintA:            mintA,
		MintB:            mintB,
		PoolState:        poolState,
		LpMint:           lpMint,
		VaultA:           vaultA,
		VaultB:           vaultB,
		ObservationState: observation,
		LpMetadata:       lpMetadata,
	}, nil
}
