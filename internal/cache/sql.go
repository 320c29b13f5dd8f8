package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/smokyabdulrahman/prayer-countdown/internal/api"
)

const schema = `
CREATE TABLE IF NOT EXISTS calendar_months (
	id         TEXT PRIMARY KEY,
	year       INTEGER NOT NULL,
	month      INTEGER NOT NULL,
	payload    TEXT NOT NULL,
	fetched_at BIGINT NOT NULL
)`

const upsertMonth = `
INSERT INTO calendar_months (id, year, month, payload, fetched_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	year = excluded.year,
	month = excluded.month,
	payload = excluded.payload,
	fetched_at = excluded.fetched_at`

const selectMonth = `
SELECT id, year, month, payload, fetched_at
FROM calendar_months
WHERE id = ?`

type monthRow struct {
	ID        string `db:"id"`
	Year      int    `db:"year"`
	Month     int    `db:"month"`
	Payload   string `db:"payload"`
	FetchedAt int64  `db:"fetched_at"`
}

// SQLStore keeps calendar months in a single SQL table. SQLite (pure Go) is
// used for plain paths and file: DSNs, PostgreSQL for postgres:// URLs.
type SQLStore struct {
	db *sqlx.DB
}

// driverFor picks the database/sql driver name for a DSN.
func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// NewSQLStore opens dsn and creates the table if it does not exist.
func NewSQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("sql cache backend requires a DSN")
	}

	driver := driverFor(dsn)
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s cache database: %w", driver, err)
	}
	if driver == "sqlite" {
		// One connection keeps in-memory databases shared and serialises writers.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create cache table: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// LoadMonth reads a cached month.
func (s *SQLStore) LoadMonth(ctx context.Context, key MonthKey) (*MonthEntry, error) {
	var row monthRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectMonth), key.ID())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("select cached month: %w", err)
	}

	entry := MonthEntry{
		Year:      row.Year,
		Month:     row.Month,
		FetchedAt: time.Unix(row.FetchedAt, 0).UTC(),
	}
	if err := json.Unmarshal([]byte(row.Payload), &entry.Days); err != nil || !entry.valid(key) {
		return nil, ErrMiss
	}
	return &entry, nil
}

// SaveMonth inserts or replaces a cached month.
func (s *SQLStore) SaveMonth(ctx context.Context, key MonthKey, days []api.Data) error {
	entry := newEntry(key, days)
	payload, err := json.Marshal(entry.Days)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(upsertMonth),
		key.ID(), entry.Year, entry.Month, string(payload), entry.FetchedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert cached month: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
