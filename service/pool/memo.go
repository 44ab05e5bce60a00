package pool

import (
	"context"
	"log/slog"
	"sync"

	"github.com/FlipZ3ro/superswapui/service/metrics"
	"github.com/gagliardetto/solana-go"
)

// AccountChecker reports whether an account exists at an address. Satisfied
// by solana.Client.
type AccountChecker interface {
	AccountExists(ctx context.Context, address solana.PublicKey) (bool, error)
}

// ExistenceMemo remembers, for the life of the process, whether a pool
// account exists at a derived address. Each address is queried at most once;
// a lookup error is recorded as "does not exist" rather than retried, so the
// answer is always available even when the RPC node is flaky. A pool created
// through this service is marked existing via MarkExists without another
// round-trip.
type ExistenceMemo struct {
	chain   AccountChecker
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	checked map[solana.PublicKey]bool
}

// NewExistenceMemo creates a memo backed by the given chain client.
func NewExistenceMemo(chain AccountChecker, m *metrics.Metrics, logger *slog.Logger) *ExistenceMemo {
	return &ExistenceMemo{
		chain:   chain,
		logger:  logger,
		metrics: m,
		checked: make(map[solana.PublicKey]bool),
	}
}

// EnsureChecked returns whether a pool account exists at address, querying
// the ledger only on the first call for that address.
func (m *ExistenceMemo) EnsureChecked(ctx context.Context, address solana.PublicKey) bool {
	m.mu.Lock()
	if exists, ok := m.checked[address]; ok {
		m.mu.Unlock()
		m.metrics.RecordPoolExistenceCheck("memoized")
		return exists
	}
	m.mu.Unlock()

	// The query runs outside the lock. If two callers race on the same
	// address both may query, but they write the same idempotent value.
	exists, err := m.chain.AccountExists(ctx, address)
	if err != nil {
		m.logger.WarnContext(ctx, "pool existence check failed, recording as absent",
			"address", address.String(),
			"error", err,
		)
		exists = false
		m.metrics.RecordPoolExistenceCheck("error")
	} else if exists {
		m.metrics.RecordPoolExistenceCheck("exists")
	} else {
		m.metrics.RecordPoolExistenceCheck("absent")
	}

	m.mu.Lock()
	m.checked[address] = exists
	m.mu.Unlock()
	return exists
}

// MarkExists records that a pool now exists at address, typically after this
// service created it.
func (m *ExistenceMemo) MarkExists(address solana.PublicKey) {
	m.mu.Lock()
	m.checked[address] = true
	m.mu.Unlock()
}
