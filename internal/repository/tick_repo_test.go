package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"bnbbrain-backend/internal/models"
)

type execCall struct {
	sql  string
	args []any
}

type recordingDB struct {
	execs     []execCall
	deleteErr error
}

func (d *recordingDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.execs = append(d.execs, execCall{sql: sql, args: args})
	if strings.HasPrefix(sql, "DELETE") {
		return pgconn.NewCommandTag("DELETE 3"), d.deleteErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (d *recordingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (d *recordingDB) deletes() []execCall {
	var out []execCall
	for _, c := range d.execs {
		if strings.HasPrefix(c.sql, "DELETE") {
			out = append(out, c)
		}
	}
	return out
}

func tick(symbol string) models.PriceTick {
	return models.PriceTick{Symbol: symbol, Price: 600, ObservedAt: time.Now()}
}

func TestTickRepo_PrunesToHistorySize(t *testing.T) {
	db := &recordingDB{}
	repo := NewTickRepo(db, 500)
	ctx := context.Background()

	for i := 0; i < pruneEvery-1; i++ {
		require.NoError(t, repo.Append(ctx, tick("BNBUSDT")))
	}
	require.Empty(t, db.deletes())

	require.NoError(t, repo.Append(ctx, tick("BNBUSDT")))
	deletes := db.deletes()
	require.Len(t, deletes, 1)
	require.Equal(t, []any{"BNBUSDT", 500}, deletes[0].args)

	for i := 0; i < pruneEvery; i++ {
		require.NoError(t, repo.Append(ctx, tick("BNBUSDT")))
	}
	require.Len(t, db.deletes(), 2)
}

func TestTickRepo_CountsPerSymbol(t *testing.T) {
	db := &recordingDB{}
	repo := NewTickRepo(db, 10)
	ctx := context.Background()

	for i := 0; i < pruneEvery; i++ {
		require.NoError(t, repo.Append(ctx, tick("BNBUSDT")))
		require.NoError(t, repo.Append(ctx, tick("ETHUSDT")))
	}

	deletes := db.deletes()
	require.Len(t, deletes, 2)
	require.Equal(t, "BNBUSDT", deletes[0].args[0])
	require.Equal(t, "ETHUSDT", deletes[1].args[0])
}

func TestTickRepo_PruneFailureDoesNotFailAppend(t *testing.T) {
	db := &recordingDB{deleteErr: errors.New("lock timeout")}
	repo := NewTickRepo(db, 10)

	for i := 0; i < pruneEvery; i++ {
		require.NoError(t, repo.Append(context.Background(), tick("BNBUSDT")))
	}
	require.Len(t, db.deletes(), 1)
}

func TestTickRepo_ZeroKeepNeverPrunes(t *testing.T) {
	db := &recordingDB{}
	repo := NewTickRepo(db, 0)

	for i := 0; i < 2*pruneEvery; i++ {
		require.NoError(t, repo.Append(context.Background(), tick("BNBUSDT")))
	}
	require.Empty(t, db.deletes())
}
