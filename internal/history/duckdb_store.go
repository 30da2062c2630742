package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// DuckDBStore keeps history in a DuckDB database file and can export every table to parquet.
type DuckDBStore struct {
	db   *sql.DB
	sq   squirrel.StatementBuilderType
	path string
	mu   sync.Mutex
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		engine TEXT,
		time TIMESTAMP,
		prices TEXT,
		indicators TEXT,
		action TEXT,
		reason TEXT,
		executed BOOLEAN,
		rejection TEXT,
		state TEXT,
		held_asset TEXT,
		realized_pnl DOUBLE,
		unrealized_pnl DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		engine TEXT,
		order_id TEXT,
		time TIMESTAMP,
		symbol TEXT,
		side TEXT,
		quantity DOUBLE,
		price DOUBLE,
		quote_qty DOUBLE,
		fee DOUBLE,
		realized_pnl DOUBLE,
		reason TEXT,
		manual BOOLEAN
	)`,
	`CREATE TABLE IF NOT EXISTS price_points (
		symbol TEXT,
		time TIMESTAMP,
		close DOUBLE
	)`,
}

// NewDuckDBStore opens (or creates) the database at path. An empty path opens an in-memory database.
func NewDuckDBStore(path string) (*DuckDBStore, error) {
	dsn := ""

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to create history directory", err)
		}

		dsn = path
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to open DuckDB connection", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()

			return nil, errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to create history tables", err)
		}
	}

	return &DuckDBStore{
		db:   db,
		sq:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		path: path,
		mu:   sync.Mutex{},
	}, nil
}

func (d *DuckDBStore) AppendSnapshot(ctx context.Context, snapshot types.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prices, err := json.Marshal(snapshot.Prices)
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to encode snapshot prices", err)
	}

	indicators, err := json.Marshal(snapshot.Indicators)
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to encode snapshot indicators", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to begin transaction", err)
	}

	_, err = d.sq.
		Insert("snapshots").
		Columns(
			"id", "engine", "time", "prices", "indicators", "action", "reason",
			"executed", "rejection", "state", "held_asset", "realized_pnl", "unrealized_pnl",
		).
		Values(
			snapshot.ID, string(snapshot.Engine), snapshot.Time, string(prices), string(indicators),
			string(snapshot.Action), string(snapshot.Reason), snapshot.Executed, snapshot.Rejection,
			string(snapshot.State), snapshot.HeldAsset, snapshot.RealizedPnL, snapshot.UnrealizedPnL,
		).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to insert snapshot", err)
	}

	if len(snapshot.Prices) > 0 {
		insert := d.sq.Insert("price_points").Columns("symbol", "time", "close")
		for _, symbol := range sortedKeys(snapshot.Prices) {
			insert = insert.Values(symbol, snapshot.Time, snapshot.Prices[symbol])
		}

		if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to insert price points", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to commit snapshot", err)
	}

	return nil
}

func (d *DuckDBStore) AppendTrade(ctx context.Context, trade types.TradeRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.sq.
		Insert("trades").
		Columns(
			"id", "engine", "order_id", "time", "symbol", "side", "quantity", "price",
			"quote_qty", "fee", "realized_pnl", "reason", "manual",
		).
		Values(
			trade.ID, string(trade.Engine), trade.OrderID, trade.Time, trade.Symbol, string(trade.Side),
			trade.Quantity, trade.Price, trade.QuoteQty, trade.Fee, trade.RealizedPnL,
			string(trade.Reason), trade.Manual,
		).
		RunWith(d.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to insert trade", err)
	}

	return nil
}

// latest limits a newest-first query. Callers reverse the rows.
func latest(builder squirrel.SelectBuilder, limit int) squirrel.SelectBuilder {
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	return builder
}

func (d *DuckDBStore) Snapshots(ctx context.Context, engine types.StrategyName, limit int) ([]types.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	query := latest(d.sq.
		Select(
			"id", "engine", "time", "prices", "indicators", "action", "reason",
			"executed", "rejection", "state", "held_asset", "realized_pnl", "unrealized_pnl",
		).
		From("snapshots").
		Where(squirrel.Eq{"engine": string(engine)}).
		OrderBy("time DESC", "id DESC"), limit)

	rows, err := query.RunWith(d.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query snapshots", err)
	}
	defer rows.Close()

	snapshots := make([]types.Snapshot, 0)

	for rows.Next() {
		var (
			s          types.Snapshot
			prices     string
			indicators string
		)

		err := rows.Scan(
			&s.ID, &s.Engine, &s.Time, &prices, &indicators, &s.Action, &s.Reason,
			&s.Executed, &s.Rejection, &s.State, &s.HeldAsset, &s.RealizedPnL, &s.UnrealizedPnL,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan snapshot", err)
		}

		if err := json.Unmarshal([]byte(prices), &s.Prices); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to decode snapshot prices", err)
		}

		if err := json.Unmarshal([]byte(indicators), &s.Indicators); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to decode snapshot indicators", err)
		}

		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read snapshots", err)
	}

	slices.Reverse(snapshots)

	return snapshots, nil
}

func (d *DuckDBStore) Trades(ctx context.Context, engine types.StrategyName, limit int) ([]types.TradeRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	query := latest(d.sq.
		Select(
			"id", "engine", "order_id", "time", "symbol", "side", "quantity", "price",
			"quote_qty", "fee", "realized_pnl", "reason", "manual",
		).
		From("trades").
		Where(squirrel.Eq{"engine": string(engine)}).
		OrderBy("time DESC", "id DESC"), limit)

	rows, err := query.RunWith(d.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	trades := make([]types.TradeRecord, 0)

	for rows.Next() {
		var t types.TradeRecord

		err := rows.Scan(
			&t.ID, &t.Engine, &t.OrderID, &t.Time, &t.Symbol, &t.Side, &t.Quantity, &t.Price,
			&t.QuoteQty, &t.Fee, &t.RealizedPnL, &t.Reason, &t.Manual,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read trades", err)
	}

	slices.Reverse(trades)

	return trades, nil
}

func (d *DuckDBStore) PriceHistory(ctx context.Context, symbol string, limit int) ([]types.PricePoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	query := latest(d.sq.
		Select("symbol", "time", "close").
		From("price_points").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("time DESC"), limit)

	rows, err := query.RunWith(d.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query price history", err)
	}
	defer rows.Close()

	points := make([]types.PricePoint, 0)

	for rows.Next() {
		var p types.PricePoint
		if err := rows.Scan(&p.Symbol, &p.Time, &p.Close); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan price point", err)
		}

		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read price history", err)
	}

	slices.Reverse(points)

	return points, nil
}

// ExportParquet writes snapshots.parquet, trades.parquet and price_points.parquet into dir.
func (d *DuckDBStore) ExportParquet(dir string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to create export directory", err)
	}

	exports := []struct {
		table string
		order string
	}{
		{"snapshots", "time"},
		{"trades", "time"},
		{"price_points", "symbol, time"},
	}

	paths := make([]string, 0, len(exports))

	for _, export := range exports {
		path := filepath.Join(dir, export.table+".parquet")

		_, err := d.db.Exec(fmt.Sprintf(`
			COPY (SELECT * FROM %s ORDER BY %s ASC)
			TO '%s' (FORMAT PARQUET)
		`, export.table, export.order, quoteLiteral(path)))
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeHistoryWriteFailed, err, "failed to export %s to parquet", export.table)
		}

		paths = append(paths, path)
	}

	return paths, nil
}

// Path returns the database file, or an empty string for an in-memory store.
func (d *DuckDBStore) Path() string {
	return d.path
}

func (d *DuckDBStore) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		if err := d.db.Close(); err != nil {
			return errors.Wrap(errors.ErrCodeHistoryWriteFailed, "failed to close database", err)
		}

		d.db = nil
	}

	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

var _ Store = (*DuckDBStore)(nil)

// quoteLiteral escapes s for use inside a single-quoted SQL string.
func quoteLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
