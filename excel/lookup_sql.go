package excel

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLLookup loads a lookup table with a query selecting two columns, the key
// and the lookup value. When DB is nil a connection is opened from Driver and
// DSN for every load and closed afterwards.
type SQLLookup struct {
	DB     *sql.DB
	Driver string
	DSN    string
	Query  string
	Args   []any
	// Timeout bounds the query, 0 means no limit.
	Timeout time.Duration
}

func (s SQLLookup) LookupPairs() ([]LookupPair, error) {
	db := s.DB
	if db == nil {
		var err error
		if db, err = sql.Open(s.Driver, s.DSN); err != nil {
			return nil, fmt.Errorf("open %s lookup database: %w", s.Driver, err)
		}
		defer db.Close()
	}

	ctx := context.Background()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	rows, err := db.QueryContext(ctx, s.Query, s.Args...)
	if err != nil {
		return nil, fmt.Errorf("lookup query: %w", err)
	}
	defer rows.Close()

	var pairs []LookupPair
	for rows.Next() {
		var key, lookup any
		if err := rows.Scan(&key, &lookup); err != nil {
			return nil, fmt.Errorf("lookup query: %w", err)
		}
		pairs = append(pairs, LookupPair{Key: sqlValue(key), Lookup: sqlValue(lookup)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup query: %w", err)
	}
	log.Debugf("%d lookup rows loaded by %q", len(pairs), s.Query)
	return pairs, nil
}

// text columns scan as bytes
func sqlValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
