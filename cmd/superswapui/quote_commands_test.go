package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FlipZ3ro/superswapui/service/catalog"
	"github.com/FlipZ3ro/superswapui/service/quote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionPricer struct {
	mu       sync.Mutex
	requests []quote.Request
}

func (p *sessionPricer) GetQuote(ctx context.Context, req quote.Request) (*quote.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return &quote.Quote{OutputAmount: req.AmountBaseUnits * 2}, nil
}

func (p *sessionPricer) BuildSwap(ctx context.Context, userPublicKey string, q *quote.Quote) (string, error) {
	return "", nil
}

func (p *sessionPricer) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// syncWriter keeps test assertions race-free against the coalescer's timer
// goroutine writing quotes.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func watchSessionCoalescer(pricer quote.Pricer, out io.Writer) *quote.Coalescer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	co := quote.NewCoalescer(pricer, 30*time.Millisecond, nil, logger)
	co.SetInputAsset(&catalog.Record{Address: "inMint", Symbol: "IN", Decimals: 6})
	co.SetOutputAsset(&catalog.Record{Address: "outMint", Symbol: "OUT", Decimals: 6})
	co.OnQuote(func(q *quote.Quote) {
		printQuote(out, q, false)
	})
	return co
}

func TestRunQuoteSessionQuotesFinalAmount(t *testing.T) {
	pricer := &sessionPricer{}
	out := &syncWriter{}
	co := watchSessionCoalescer(pricer, out)

	// Three edits without pauses act like one burst; the session waits
	// for the last one to settle before returning.
	in := strings.NewReader("1\n2\n3\n")
	require.NoError(t, runQuoteSession(co, in))

	require.Equal(t, 1, pricer.requestCount())
	assert.Equal(t, uint64(3_000_000), pricer.requests[0].AmountBaseUnits)

	q := co.Quote()
	require.NotNil(t, q)
	assert.Equal(t, "3", q.Intent.Amount)

	// The quote callback runs on the timer goroutine and may land just
	// after the session returns.
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "3 IN -> 6 OUT")
	}, time.Second, 10*time.Millisecond)
}

func TestRunQuoteSessionSwitchInvertsDirection(t *testing.T) {
	pricer := &sessionPricer{}
	out := &syncWriter{}
	co := watchSessionCoalescer(pricer, out)

	in := strings.NewReader("1\n")
	require.NoError(t, runQuoteSession(co, in))
	require.Equal(t, 1, pricer.requestCount())

	// A switch after the first quote re-quotes the inverted pair
	require.NoError(t, runQuoteSession(co, strings.NewReader("switch\n")))
	require.Equal(t, 2, pricer.requestCount())
	assert.Equal(t, "outMint", pricer.requests[1].InputMint)
	assert.Equal(t, "inMint", pricer.requests[1].OutputMint)
}

func TestRunQuoteSessionInvalidAmountIssuesNothing(t *testing.T) {
	pricer := &sessionPricer{}
	out := &syncWriter{}
	co := watchSessionCoalescer(pricer, out)

	require.NoError(t, runQuoteSession(co, strings.NewReader("garbage\n-1\n0\n")))
	assert.Zero(t, pricer.requestCount())
	assert.Nil(t, co.Quote())
}
