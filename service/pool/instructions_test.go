package pool

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetComputeUnitPriceEncoding(t *testing.T) {
	ix := SetComputeUnitPrice(333333)

	assert.Equal(t, computeBudgetProgramID, ix.ProgramID())
	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 9)
	assert.Equal(t, byte(3), data[0])
	assert.Equal(t, uint64(333333), binary.LittleEndian.Uint64(data[1:]))
}

func TestAnchorDiscriminator(t *testing.T) {
	want := sha256.Sum256([]byte("global:initialize"))
	assert.Equal(t, want[:8], anchorDiscriminator("initialize"))
}

func TestInitializePoolInstruction(t *testing.T) {
	keys, err := Derive(testCpmmProgram, testMetadataProgram, 0, wsolMint, usdcMint)
	require.NoError(t, err)

	creator := solana.NewWallet().PublicKey()
	ataA, err := DeriveAssociatedTokenAddress(creator, tokenProgramID, keys.MintA)
	require.NoError(t, err)
	ataB, err := DeriveAssociatedTokenAddress(creator, tokenProgramID, keys.MintB)
	require.NoError(t, err)
	lp, err := DeriveAssociatedTokenAddress(creator, tokenProgramID, keys.LpMint)
	require.NoError(t, err)

	ix, err := InitializePool(keys, creator, ataA, ataB, lp, tokenProgramID, tokenProgramID, 1000, 2000, 1_700_000_000)
	require.NoError(t, err)

	assert.Equal(t, testCpmmProgram, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	// 8-byte discriminator + three u64 args, little endian
	require.Len(t, data, 8+24)
	assert.Equal(t, anchorDiscriminator("initialize"), data[:8])
	assert.Equal(t, uint64(1000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(2000), binary.LittleEndian.Uint64(data[16:24]))
	assert.Equal(t, uint64(1_700_000_000), binary.LittleEndian.Uint64(data[24:32]))

	// Creator signs; pool state and vaults are written
	accounts := ix.Accounts()
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[0].IsWritable)
	assert.Equal(t, creator, accounts[0].PublicKey)
}

func TestAttachMetadataAppendsNonSigningWritablePayer(t *testing.T) {
	keys, err := Derive(testCpmmProgram, testMetadataProgram, 0, wsolMint, usdcMint)
	require.NoError(t, err)
	payer := solana.NewWallet().PublicKey()

	ix, err := AttachMetadata(keys, testMetadataProgram, payer, "Dog Pool", "DOG", "https://sho.rt/abc")
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, anchorDiscriminator("initialize_metadata"), data[:8])

	accounts := ix.Accounts()
	last := accounts[len(accounts)-1]
	assert.Equal(t, payer, last.PublicKey)
	assert.False(t, last.IsSigner, "appended payer participant must not sign")
	assert.True(t, last.IsWritable)

	// The payer also leads the list as the signing fee payer
	assert.Equal(t, payer, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
}

func TestDeriveAssociatedTokenAddressDependsOnTokenProgram(t *testing.T) {
	owner := solana.NewWallet().PublicKey()

	legacy, err := DeriveAssociatedTokenAddress(owner, tokenProgramID, wsolMint)
	require.NoError(t, err)
	modern, err := DeriveAssociatedTokenAddress(owner, token2022ProgramID, wsolMint)
	require.NoError(t, err)

	assert.NotEqual(t, legacy, modern)
}
