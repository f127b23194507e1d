package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/peter-kozarec/btlite/pkg/common"
)

const DefaultTable = "prices"

var (
	ErrNotConnected = errors.New("reader is not connected")
	ErrInvalidTable = errors.New("invalid table name")

	tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Reader loads reference prices from a duckdb table with the columns
// symbol VARCHAR, ts TIMESTAMP and price DOUBLE.
type Reader struct {
	dataSourceName string
	table          string
	db             *sql.DB
}

func NewReader(dataSourceName, table string) (*Reader, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("table %q: %w", table, ErrInvalidTable)
	}
	return &Reader{
		dataSourceName: dataSourceName,
		table:          table,
	}, nil
}

func (r *Reader) Connect(ctx context.Context) error {
	db, err := sql.Open("duckdb", r.dataSourceName)
	if err != nil {
		return fmt.Errorf("unable to open duckdb %q: %w", r.dataSourceName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("unable to connect to duckdb %q: %w", r.dataSourceName, err)
	}
	r.db = db
	return nil
}

func (r *Reader) Close() {
	if r.db != nil {
		_ = r.db.Close()
		r.db = nil
	}
}

// LoadPrices streams the prices of symbol within [from, to] ordered by
// timestamp into handler.
func (r *Reader) LoadPrices(ctx context.Context, symbol string, from, to time.Time, handler func(point common.PricePoint) error) error {
	if r.db == nil {
		return ErrNotConnected
	}

	query := fmt.Sprintf(`SELECT ts, price FROM %s WHERE upper(symbol) = upper(?) AND ts BETWEEN ? AND ? ORDER BY ts`, r.table)

	rows, err := r.db.QueryContext(ctx, query, symbol, from.UTC(), to.UTC())
	if err != nil {
		return fmt.Errorf("error preparing query: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		point := common.PricePoint{Symbol: symbol}
		if err := rows.Scan(&point.TimeStamp, &point.Price); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		point.TimeStamp = point.TimeStamp.UTC()
		if err := handler(point); err != nil {
			return fmt.Errorf("error processing price: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error scanning rows: %w", err)
	}

	return nil
}

// LoadInto adds the prices of every symbol within [from, to] to table.
func (r *Reader) LoadInto(ctx context.Context, table *common.PriceTable, symbols []string, from, to time.Time) (int, error) {
	n := 0
	for _, symbol := range symbols {
		err := r.LoadPrices(ctx, symbol, from, to, func(point common.PricePoint) error {
			table.Add(point)
			n++
			return nil
		})
		if err != nil {
			return n, fmt.Errorf("unable to load prices of %s: %w", symbol, err)
		}
	}
	return n, nil
}
