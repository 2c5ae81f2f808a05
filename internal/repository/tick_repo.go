package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"bnbbrain-backend/internal/models"
	"bnbbrain-backend/pkg/logger"
)

// pruneEvery is how many appends per symbol pass between retention sweeps.
const pruneEvery = 50

// TickStore archives observed prices so predictions survive restarts.
type TickStore interface {
	Append(ctx context.Context, tick models.PriceTick) error
	// RecentCloses returns up to n of the latest prices, oldest first.
	RecentCloses(ctx context.Context, symbol string, n int) ([]float64, error)
}

// dbtx is the part of *pgxpool.Pool the repo uses.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TickRepo keeps at most keep rows per symbol, trimmed every pruneEvery
// appends. A keep of zero or less disables trimming.
type TickRepo struct {
	pool dbtx
	keep int

	mu      sync.Mutex
	appends map[string]int
}

func NewTickRepo(pool dbtx, keep int) *TickRepo {
	return &TickRepo{pool: pool, keep: keep, appends: make(map[string]int)}
}

func (r *TickRepo) Append(ctx context.Context, tick models.PriceTick) error {
	query := `INSERT INTO price_ticks (symbol, price, change_percent, volume, observed_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		tick.Symbol, tick.Price, tick.ChangePercent, tick.Volume, tick.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}

	if r.due(tick.Symbol) {
		if err := r.prune(ctx, tick.Symbol); err != nil {
			logger.Warnf("Tick retention for %s failed: %v", tick.Symbol, err)
		}
	}
	return nil
}

func (r *TickRepo) due(symbol string) bool {
	if r.keep <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appends[symbol]++
	if r.appends[symbol] < pruneEvery {
		return false
	}
	r.appends[symbol] = 0
	return true
}

// prune deletes everything older than the newest keep rows of symbol.
func (r *TickRepo) prune(ctx context.Context, symbol string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM price_ticks WHERE symbol = $1 AND id NOT IN (
			SELECT id FROM price_ticks WHERE symbol = $1 ORDER BY observed_at DESC, id DESC LIMIT $2)`,
		symbol, r.keep,
	)
	if err != nil {
		return err
	}
	if n := tag.RowsAffected(); n > 0 {
		logger.Debugf("Pruned %d old ticks for %s", n, symbol)
	}
	return nil
}

func (r *TickRepo) RecentCloses(ctx context.Context, symbol string, n int) ([]float64, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT price::float8 FROM price_ticks WHERE symbol = $1 ORDER BY observed_at DESC, id DESC LIMIT $2`,
		symbol, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reverse(prices)
	return prices, nil
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
