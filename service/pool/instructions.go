package pool

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	computeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
	ataProgramID           = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	tokenProgramID         = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	rentSysvarID           = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")

	// Fee receiver for pool creation, fixed by the CPMM program.
	createPoolFeeReceiver = solana.MustPublicKeyFromBase58("DNXgeM9EiiaAbaWvwjHj9fQQLAX5ZsfHyvmYUNRAdNC8")
)

// anchorDiscriminator computes the 8-byte instruction tag for an Anchor
// program method.
func anchorDiscriminator(method string) []byte {
	h := sha256.Sum256([]byte("global:" + method))
	return h[:8]
}

// SetComputeUnitPrice builds a compute-budget instruction raising the
// transaction's priority fee. Instruction 3 of the compute-budget program,
// data is the tag byte followed by the price in micro-lamports, little endian.
func SetComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return solana.NewInstruction(computeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// DeriveAssociatedTokenAddress computes the holding account for (owner, mint)
// under the given token program. The token program is part of the seed, so
// token-2022 mints derive different addresses than legacy mints.
func DeriveAssociatedTokenAddress(owner, tokenProgram, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner.Bytes(), tokenProgram.Bytes(), mint.Bytes()}, ataProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive associated token address: %w", err)
	}
	return addr, nil
}

// CreateAssociatedTokenAccount builds the instruction creating the holding
// account for (owner, mint). Idempotent creation is not used; callers must
// check existence first.
func CreateAssociatedTokenAccount(payer, owner, mint, tokenProgram, ata solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		ataProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(payer, true, true),
			solana.NewAccountMeta(ata, true, false),
			solana.NewAccountMeta(owner, false, false),
			solana.NewAccountMeta(mint, false, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
			solana.NewAccountMeta(tokenProgram, false, false),
		},
		[]byte{},
	)
}

// initializeArgs is the borsh payload of the pool initialization instruction.
type initializeArgs struct {
	InitAmount0 uint64
	InitAmount1 uint64
	OpenTime    uint64
}

// InitializePool builds the pool-initialization instruction. Deposit amounts
// must already be in canonical mint order; openTime is a unix timestamp
// before which swapping is disabled.
func InitializePool(
	keys Keys,
	creator solana.PublicKey,
	creatorTokenA, creatorTokenB, creatorLpToken solana.PublicKey,
	tokenProgramA, tokenProgramB solana.PublicKey,
	amountA, amountB uint64,
	openTime uint64,
) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.Encode(initializeArgs{
		InitAmount0: amountA,
		InitAmount1: amountB,
		OpenTime:    openTime,
	}); err != nil {
		return nil, fmt.Errorf("encode initialize args: %w", err)
	}
	data := append(anchorDiscriminator("initialize"), buf.Bytes()...)

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(creator, true, true),
		solana.NewAccountMeta(keys.AmmConfig, false, false),
		solana.NewAccountMeta(keys.Authority, false, false),
		solana.NewAccountMeta(keys.PoolState, true, false),
		solana.NewAccountMeta(keys.MintA, false, false),
		solana.NewAccountMeta(keys.MintB, false, false),
		solana.NewAccountMeta(keys.LpMint, true, false),
		solana.NewAccountMeta(creatorTokenA, true, false),
		solana.NewAccountMeta(creatorTokenB, true, false),
		solana.NewAccountMeta(creatorLpToken, true, false),
		solana.NewAccountMeta(keys.VaultA, true, false),
		solana.NewAccountMeta(keys.VaultB, true, false),
		solana.NewAccountMeta(createPoolFeeReceiver, true, false),
		solana.NewAccountMeta(keys.ObservationState, true, false),
		solana.NewAccountMeta(tokenProgramID, false, false),
		solana.NewAccountMeta(tokenProgramA, false, false),
		solana.NewAccountMeta(tokenProgramB, false, false),
		solana.NewAccountMeta(ataProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(rentSysvarID, false, false),
	}

	return solana.NewInstruction(keys.ProgramID, accounts, data), nil
}

// metadataArgs is the borsh payload of the metadata-attachment instruction.
type metadataArgs struct {
	Name   string
	Symbol string
	URI    string
}

// AttachMetadata builds the instruction writing name/symbol/URI metadata for
// the pool's LP mint. The payer is appended as an extra non-signing writable
// account; the program debits it for metadata rent through the pool
// authority rather than a second signature.
func AttachMetadata(keys Keys, metadataProgram, payer solana.PublicKey, name, symbol, uri string) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.Encode(metadataArgs{Name: name, Symbol: symbol, URI: uri}); err != nil {
		return nil, fmt.Errorf("encode metadata args: %w", err)
	}
	data := append(anchorDiscriminator("initialize_metadata"), buf.Bytes()...)

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(keys.Authority, false, false),
		solana.NewAccountMeta(keys.PoolState, false, false),
		solana.NewAccountMeta(keys.LpMint, false, false),
		solana.NewAccountMeta(keys.LpMetadata, true, false),
		solana.NewAccountMeta(metadataProgram, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(rentSysvarID, false, false),
		// Extra writable participant paying metadata rent.
		solana.NewAccountMeta(payer, true, false),
	}

	return solana.NewInstruction(keys.ProgramID, accounts, data), nil
}
