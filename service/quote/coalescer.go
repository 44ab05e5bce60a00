package quote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/FlipZ3ro/superswapui/service/catalog"
	"github.com/FlipZ3ro/superswapui/service/metrics"
)

// State is the coalescer's position in its quoting lifecycle.
type State int

const (
	// StateIdle means no quote request is pending or in flight.
	StateIdle State = iota
	// StateScheduled means an edit has armed the quiet-period timer.
	StateScheduled
	// StateInFlight means a quote request has been issued and not yet resolved.
	StateInFlight
)

// Coalescer watches a mutable trade intent and collapses bursts of edits
// into a single quote request issued after a quiet period. Each edit
// cancels and re-arms the timer; every edit also advances a sequence
// number, and a response is installed only if its sequence still matches.
// In-flight requests are not abortable, so stale responses are detected on
// arrival and discarded.
type Coalescer struct {
	pricer         Pricer
	quiet          time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger
	metrics        *metrics.Metrics

	mu     sync.Mutex
	state  State
	intent Intent
	timer  *time.Timer
	seq    uint64
	quote  *Quote

	// onQuote, when set, is invoked outside the lock for every installed quote.
	onQuote func(*Quote)
}

// NewCoalescer creates a quote coalescer with the given quiet period.
func NewCoalescer(pricer Pricer, quiet time.Duration, m *metrics.Metrics, logger *slog.Logger) *Coalescer {
	return &Coalescer{
		pricer:         pricer,
		quiet:          quiet,
		requestTimeout: 15 * time.Second,
		logger:         logger,
		metrics:        m,
	}
}

// OnQuote registers a callback invoked whenever a quote is installed.
// Must be called before the first intent mutation.
func (c *Coalescer) OnQuote(fn func(*Quote)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onQuote = fn
}

// SetAmount updates the typed amount and reschedules quoting.
func (c *Coalescer) SetAmount(amount string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intent.Amount = amount
	c.reschedule()
}

// SetInputAsset updates the input asset and reschedules quoting.
func (c *Coalescer) SetInputAsset(asset *catalog.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intent.InputAsset = asset
	c.reschedule()
}

// SetOutputAsset updates the output asset and reschedules quoting.
func (c *Coalescer) SetOutputAsset(asset *catalog.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intent.OutputAsset = asset
	c.reschedule()
}

// SetSlippageBps updates the slippage tolerance. Slippage alone does not
// reschedule; the next amount or asset edit picks it up.
func (c *Coalescer) SetSlippageBps(bps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intent.SlippageBps = bps
}

// SwitchAssets swaps the trade direction. When a quote is held, the typed
// amount is replaced by that quote's output amount expressed in the new
// input asset's decimals; otherwise the typed amount is kept.
func (c *Coalescer) SwitchAssets() {
	c.mu.Lock()
	defer c.mu.Unlock()

	prevOutput := c.intent.OutputAsset
	c.intent.InputAsset, c.intent.OutputAsset = c.intent.OutputAsset, c.intent.InputAsset

	if c.quote != nil && prevOutput != nil {
		c.intent.Amount = FromBaseUnits(c.quote.OutputAmount, prevOutput.Decimals)
	}

	c.reschedule()
}

// Intent returns a copy of the current intent.
func (c *Coalescer) Intent() Intent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intent
}

// Quote returns the last installed quote, or nil. The returned quote
// carries the intent that produced it.
func (c *Coalescer) Quote() *Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quote
}

// State returns the coalescer's current state.
func (c *Coalescer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// reschedule is called with the lock held after every quotable mutation.
// It invalidates any pending or in-flight request and, if the intent is
// quotable, arms the quiet-period timer.
func (c *Coalescer) reschedule() {
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
		c.metrics.RecordQuoteEditCoalesced()
	}

	if !c.intent.Valid() {
		c.state = StateIdle
		return
	}

	c.state = StateScheduled
	seq := c.seq
	intent := c.intent
	c.timer = time.AfterFunc(c.quiet, func() {
		c.fire(seq, intent)
	})
}

// fire issues the quote request armed under seq. It runs on the timer
// goroutine; by the time it executes the intent may already have moved on,
// in which case it does nothing.
func (c *Coalescer) fire(seq uint64, intent Intent) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.state = StateInFlight
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	defer cancel()

	amountBase, err := BaseUnits(intent.Amount, intent.InputAsset.Decimals)
	if err != nil {
		c.logger.Warn("cannot convert amount to base units", "amount", intent.Amount, "error", err)
		c.settle(seq, nil)
		return
	}

	q, err := c.pricer.GetQuote(ctx, Request{
		InputMint:       intent.InputAsset.Address,
		OutputMint:      intent.OutputAsset.Address,
		AmountBaseUnits: amountBase,
		SlippageBps:     intent.SlippageBps,
	})
	if err != nil {
		// No retry: the next edit or timer naturally re-triggers.
		c.logger.Warn("quote request failed",
			"input_mint", intent.InputAsset.Address,
			"output_mint", intent.OutputAsset.Address,
			"error", err,
		)
		c.settle(seq, nil)
		return
	}

	q.Intent = intent
	c.settle(seq, q)
}

// settle installs the outcome of a request if the intent has not changed
// since it was issued. A quote arriving for a superseded sequence is
// discarded so a slow response can never overwrite a fresher one.
func (c *Coalescer) settle(seq uint64, q *Quote) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		if q != nil {
			c.metrics.RecordQuoteStaleDiscarded()
			c.logger.Debug("discarded stale quote response")
		}
		return
	}

	c.state = StateIdle
	var notify func(*Quote)
	if q != nil {
		c.quote = q
		notify = c.onQuote
	}
	c.mu.Unlock()

	if notify != nil {
		notify(q)
	}
}
