package nats

import "time"

// SwapEvent represents a completed swap published to NATS.
// This is published to the subject "superswap.swaps.{wallet_address}" in JetStream.
type SwapEvent struct {
	// Transaction identifiers
	Signature     string `json:"signature"`
	WalletAddress string `json:"wallet_address"`

	// Swap details
	InputMint       string `json:"input_mint"`
	OutputMint      string `json:"output_mint"`
	AmountBaseUnits uint64 `json:"amount_base_units"`
	OutputAmount    uint64 `json:"output_amount"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// PoolCreatedEvent represents a newly bootstrapped pool published to NATS.
// This is published to the subject "superswap.pools.{pool_address}" in JetStream.
type PoolCreatedEvent struct {
	Signature   string `json:"signature"`
	PoolAddress string `json:"pool_address"`
	MintA       string `json:"mint_a"`
	MintB       string `json:"mint_b"`
	LpMint      string `json:"lp_mint"`
	Creator     string `json:"creator"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	MetadataURI string `json:"metadata_uri"`

	PublishedAt time.Time `json:"published_at"`
}
