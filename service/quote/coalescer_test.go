package quote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/FlipZ3ro/superswapui/service/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPricer implements Pricer for testing.
// Each GetQuote call is recorded; responses can be delayed via the block
// channel to simulate slow upstreams.
type mockPricer struct {
	mu       sync.Mutex
	requests []Request
	response *Quote
	err      error
	blocking bool // when true, each GetQuote waits on its own gate until released
	gates    []chan struct{}
}

func (m *mockPricer) GetQuote(ctx context.Context, req Request) (*Quote, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	var gate chan struct{}
	if m.blocking {
		gate = make(chan struct{})
		m.gates = append(m.gates, gate)
	}
	resp := m.response
	err := m.err
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	// Copy so each caller gets its own value
	q := *resp
	return &q, nil
}

// release unblocks the i-th GetQuote call, waiting for it to arrive first.
func (m *mockPricer) release(t *testing.T, i int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		if len(m.gates) > i {
			close(m.gates[i])
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("request %d never arrived", i)
}

func (m *mockPricer) BuildSwap(ctx context.Context, userPublicKey string, q *Quote) (string, error) {
	return "", nil
}

func (m *mockPricer) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockPricer) lastRequest() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func assetX() *catalog.Record {
	return &catalog.Record{
		Address:  "So11111111111111111111111111111111111111112",
		Decimals: 6,
		Symbol:   "ASTX",
		Name:     "Asset X",
	}
}

func assetY() *catalog.Record {
	return &catalog.Record{
		Address:  "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Decimals: 9,
		Symbol:   "ASTY",
		Name:     "Asset Y",
	}
}

func waitForState(t *testing.T, c *Coalescer, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("coalescer never reached state %d (currently %d)", want, c.State())
}

func TestCoalescer_BurstOfEditsYieldsOneRequest(t *testing.T) {
	pricer := &mockPricer{
		response: &Quote{OutputAmount: 42, PriceImpactPct: decimal.Zero, Raw: json.RawMessage(`{}`)},
	}
	c := NewCoalescer(pricer, 40*time.Millisecond, nil, testLogger())

	c.SetInputAsset(assetX())
	c.SetOutputAsset(assetY())

	// Rapid typing: "1", "12", "123", "123.5"
	c.SetAmount("1")
	c.SetAmount("12")
	c.SetAmount("123")
	lastEdit := time.Now()
	c.SetAmount("123.5")

	waitForState(t, c, StateIdle)
	elapsed := time.Since(lastEdit)

	require.Equal(t, 1, pricer.requestCount(), "edits within the quiet period must collapse to one request")
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond, "request must be issued only after the quiet period from the last edit")

	req := pricer.lastRequest()
	assert.Equal(t, uint64(123_500_000), req.AmountBaseUnits)
}

func TestCoalescer_EndToEndScenario(t *testing.T) {
	// intent = {in: assetX (6 decimals), out: assetY, amount: "1"}
	// upstream returns {outAmount: "2500000", priceImpactPct: 0.12}
	raw := json.RawMessage(`{"outAmount":"2500000","priceImpactPct":0.12}`)
	pricer := &mockPricer{
		response: &Quote{
			OutputAmount:   2_500_000,
			PriceImpactPct: decimal.NewFromFloat(0.12),
			Raw:            raw,
		},
	}

	var installed []*Quote
	var installedMu sync.Mutex

	c := NewCoalescer(pricer, 30*time.Millisecond, nil, testLogger())
	c.OnQuote(func(q *Quote) {
		installedMu.Lock()
		installed = append(installed, q)
		installedMu.Unlock()
	})

	c.SetInputAsset(assetX())
	c.SetOutputAsset(assetY())
	c.SetAmount("1")

	waitForState(t, c, StateIdle)
	// Allow the notification callback to run
	time.Sleep(10 * time.Millisecond)

	require.Equal(t, 1, pricer.requestCount())
	assert.Equal(t, uint64(1_000_000), pricer.lastRequest().AmountBaseUnits)

	installedMu.Lock()
	defer installedMu.Unlock()
	require.Len(t, installed, 1, "quote must be presented exactly once")

	q := installed[0]
	assert.Equal(t, uint64(2_500_000), q.OutputAmount)
	assert.True(t, q.PriceImpactPct.Equal(decimal.NewFromFloat(0.12)))

	// The quote is tagged with the intent that produced it
	assert.Equal(t, "1", q.Intent.Amount)
	assert.Equal(t, assetX().Address, q.Intent.InputAsset.Address)
	assert.Equal(t, assetY().Address, q.Intent.OutputAsset.Address)
}

func TestCoalescer_StaleResponseRejected(t *testing.T) {
	pricer := &mockPricer{
		response: &Quote{OutputAmount: 111, Raw: json.RawMessage(`{}`)},
		blocking: true,
	}
	c := NewCoalescer(pricer, 10*time.Millisecond, nil, testLogger())

	c.SetInputAsset(assetX())
	c.SetOutputAsset(assetY())
	c.SetAmount("1")

	// Wait for the first request (intent I1) to go in flight
	waitForState(t, c, StateInFlight)

	// Intent changes to I2 while I1's response is still pending
	c.SetAmount("2")

	// Release the slow I1 response; it must be discarded
	pricer.release(t, 0)
	time.Sleep(10 * time.Millisecond)
	assert.Nil(t, c.Quote(), "response for a superseded intent must not be installed")

	// Release I2's response; it must be installed against I2
	pricer.release(t, 1)
	waitForState(t, c, StateIdle)

	q := c.Quote()
	require.NotNil(t, q)
	assert.Equal(t, "2", q.Intent.Amount)
	assert.Equal(t, 2, pricer.requestCount())
}

func TestCoalescer_FailureLeavesQuoteUnchanged(t *testing.T) {
	pricer := &mockPricer{err: assert.AnError}
	c := NewCoalescer(pricer, 10*time.Millisecond, nil, testLogger())

	c.SetInputAsset(assetX())
	c.SetOutputAsset(assetY())
	c.SetAmount("1")

	waitForState(t, c, StateIdle)

	assert.Equal(t, 1, pricer.requestCount())
	assert.Nil(t, c.Quote(), "a failed request must not install a quote")
}

func TestCoalescer_InvalidIntentDoesNotSchedule(t *testing.T) {
	pricer := &mockPricer{response: &Quote{OutputAmount: 1, Raw: json.RawMessage(`{}`)}}
	c := NewCoalescer(pricer, 5*time.Millisecond, nil, testLogger())

	// Only one asset resolved
	c.SetInputAsset(assetX())
	c.SetAmount("1")
	assert.Equal(t, StateIdle, c.State())

	// Both assets, but non-positive amount
	c.SetOutputAsset(assetY())
	c.SetAmount("0")
	assert.Equal(t, StateIdle, c.State())
	c.SetAmount("-3")
	assert.Equal(t, StateIdle, c.State())
	c.SetAmount("garbage")
	assert.Equal(t, StateIdle, c.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, pricer.requestCount())
}

func TestCoalescer_SwitchAssetsInvertsAmountFromQuote(t *testing.T) {
	pricer := &mockPricer{
		response: &Quote{OutputAmount: 2_500_000_000, Raw: json.RawMessage(`{}`)},
	}
	c := NewCoalescer(pricer, 10*time.Millisecond, nil, testLogger())

	c.SetInputAsset(assetX())
	c.SetOutputAsset(assetY()) // 9 decimals
	c.SetAmount("1")

	waitForState(t, c, StateIdle)
	require.NotNil(t, c.Quote())

	c.SwitchAssets()

	intent := c.Intent()
	assert.Equal(t, assetY().Address, intent.InputAsset.Address)
	assert.Equal(t, assetX().Address, intent.OutputAsset.Address)
	// 2_500_000_000 base units of the 9-decimals asset = 2.5
	assert.Equal(t, "2.5", intent.Amount)
}

func TestCoalescer_SwitchAssetsWithoutQuoteKeepsAmount(t *testing.T) {
	pricer := &mockPricer{response: &Quote{OutputAmount: 1, Raw: json.RawMessage(`{}`)}}
	c := NewCoalescer(pricer, time.Hour, nil, testLogger())

	c.SetInputAsset(assetX())
	c.SetOutputAsset(assetY())
	c.SetAmount("7.25")

	c.SwitchAssets()

	intent := c.Intent()
	assert.Equal(t, "7.25", intent.Amount)
	assert.Equal(t, assetY().Address, intent.InputAsset.Address)
}

func TestBaseUnits(t *testing.T) {
	v, err := BaseUnits("1", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), v)

	v, err = BaseUnits("0.000001", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	// Rounds rather than truncates
	v, err = BaseUnits("1.0000006", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_001), v)

	_, err = BaseUnits("0", 6)
	require.Error(t, err)

	_, err = BaseUnits("not-a-number", 6)
	require.Error(t, err)
}

func TestFromBaseUnits(t *testing.T) {
	assert.Equal(t, "2.5", FromBaseUnits(2_500_000_000, 9))
	assert.Equal(t, "1", FromBaseUnits(1_000_000, 6))
	assert.Equal(t, "0.000001", FromBaseUnits(1, 6))
}
