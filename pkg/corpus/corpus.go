// Package corpus loads ranking corpora from SQL databases. Each row is
// one document: the first column is its id and every further column is
// one textual part, in select order.
package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/related/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/related/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/related/pkg/resilience"
)

// ConnectBackoff paces LoadPostgres connection attempts.
var ConnectBackoff = resilience.Backoff{Attempts: 3, Initial: 200 * time.Millisecond, Jitter: 0.1}

// Record is one loaded document.
type Record struct {
	ID     string
	Fields []string
}

// Serializer returns the record's fields as ranking parts.
func Serializer(r Record) []string {
	return r.Fields
}

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Load runs query and returns one Record per row in result order. NULL
// columns load as empty strings.
func Load(ctx context.Context, q Querier, query string, args ...any) ([]Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorpusSource, err, "querying corpus")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorpusSource, err, "reading columns")
	}
	if len(cols) < 2 {
		return nil, apperrors.Newf(apperrors.ErrCorpusSource,
			"query returns %d columns, need an id and at least one part", len(cols))
	}

	var records []Record
	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCorpusSource, err, "scanning row %d", len(records))
		}
		fields := make([]string, len(cols)-1)
		for i := range fields {
			fields[i] = values[i+1].String
		}
		records = append(records, Record{ID: values[0].String, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorpusSource, err, "iterating rows")
	}
	slog.Default().With("component", "corpus").Debug("corpus loaded",
		"documents", len(records),
		"parts", len(cols)-1,
	)
	return records, nil
}

// LoadPostgres connects with pg, retrying failed connections, and runs
// cc.Query inside a read-only transaction. Query errors are not retried.
func LoadPostgres(ctx context.Context, pg config.PostgresConfig, cc config.CorpusConfig) ([]Record, error) {
	if strings.TrimSpace(cc.Query) == "" {
		return nil, apperrors.New(apperrors.ErrCorpusSource, "no corpus query configured")
	}
	var client *postgres.Client
	err := resilience.Retry(ctx, "postgres connect", ConnectBackoff, nil, func(ctx context.Context) error {
		var err error
		client, err = postgres.New(ctx, pg)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorpusSource, err, "connecting to postgres")
	}
	defer client.Close()

	var records []Record
	err = client.ReadOnly(ctx, func(tx *sql.Tx) error {
		var err error
		records, err = Load(ctx, tx, cc.Query)
		return err
	})
	if errors.Is(err, apperrors.ErrCorpusSource) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorpusSource, err, "reading corpus")
	}
	return records, nil
}

// OpenSQLite opens a SQLite database with the pure-Go driver. Use
// "file::memory:" style DSNs for throwaway corpora.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}
	return db, nil
}
