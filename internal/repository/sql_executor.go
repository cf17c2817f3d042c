package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SergeiKhy/linkdash/internal/metrics"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver
)

// SQLExecutor реализует Executor поверх database/sql.
// libsql:// и https:// URL уходят в Turso, остальное в локальный SQLite.
// Каждый Query и Batch ограничен timeout, как запросы QueryClient.
type SQLExecutor struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLExecutor timeout <= 0 означает defaultTimeout
func NewSQLExecutor(dsn string, timeout time.Duration) (*SQLExecutor, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	driverName := "sqlite"
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") || strings.HasPrefix(dsn, "https://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driverName == "sqlite" {
		// in-memory база живёт в рамках одного соединения
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLExecutor{db: db, timeout: timeout}, nil
}

func (e *SQLExecutor) IsConfigured() bool {
	return e != nil && e.db != nil
}

func (e *SQLExecutor) Query(ctx context.Context, query string, params ...any) (Rows, error) {
	start := time.Now()
	defer observe("query", start)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, mapSQLError(err)
	}
	return scanRows(rows)
}

// Batch выполняет запросы в одной транзакции
func (e *SQLExecutor) Batch(ctx context.Context, statements []Statement) ([]Rows, error) {
	if len(statements) == 0 {
		return []Rows{}, nil
	}
	start := time.Now()
	defer observe("batch", start)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapSQLError(err)
	}
	defer tx.Rollback()

	out := make([]Rows, 0, len(statements))
	for _, s := range statements {
		rows, err := tx.QueryContext(ctx, s.SQL, s.Params...)
		if err != nil {
			return nil, mapSQLError(err)
		}
		result, err := scanRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapSQLError(err)
	}
	return out, nil
}

func (e *SQLExecutor) Close() error {
	return e.db.Close()
}

func scanRows(rows *sql.Rows) (Rows, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, mapSQLError(err)
	}

	out := Rows{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mapSQLError(err)
		}

		record := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
				continue
			}
			record[col] = values[i]
		}

		data, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to encode row: %w", err)
		}
		out = append(out, data)
	}

	if err := rows.Err(); err != nil {
		return nil, mapSQLError(err)
	}
	return out, nil
}

// mapSQLError приводит ошибки драйвера к той же таксономии, что и HTTP-клиент
func mapSQLError(err error) error {
	var mapped error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		mapped = &TransportError{Err: err}
	} else {
		mapped = newRemoteError(0, err.Error())
	}
	metrics.QueryErrors.WithLabelValues(errorKind(mapped)).Inc()
	return mapped
}

func observe(op string, start time.Time) {
	metrics.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
