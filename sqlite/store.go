package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/goforj/cachekit/cachecore"
)

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("sqlite: invalid table name")

var identPartRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is a cachecore.Store over a sqlite table. Expiry is stored in unix
// milliseconds and checked on read; Purge removes expired rows.
type Store struct {
	db    *sql.DB
	table string
	now   func() time.Time

	getStmt    *sql.Stmt
	upsertStmt *sql.Stmt
	addStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	expireStmt *sql.Stmt
	flushStmt  *sql.Stmt
	purgeStmt  *sql.Stmt
}

var _ cachecore.Store = (*Store)(nil)

// Open opens the database, creates the table when missing and prepares the
// statements.
func Open(ctx context.Context, opts StoreOptions) (*Store, error) {
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	db, err := sql.Open("sqlite", dsn(path, opts))
	if err != nil {
		return nil, err
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s := &Store{db: db, table: table, now: time.Now}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string, opts StoreOptions) string {
	q := url.Values{}
	busy := opts.BusyTimeout.Std()
	if busy <= 0 {
		busy = DefaultBusyTimeout
	}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	if opts.WAL && path != MemoryPath {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + path + "?" + q.Encode()
}

// ValidateTable checks that name is one or two dot-separated identifiers.
func ValidateTable(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTable)
	}
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	for _, part := range parts {
		if !identPartRE.MatchString(part) {
			return fmt.Errorf("%w: %q", ErrInvalidTable, name)
		}
	}
	return nil
}

func (s *Store) Type() cachecore.ProviderType { return cachecore.ProviderSQLite }

// Table returns the table entries are kept in.
func (s *Store) Table() string { return s.table }

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		k TEXT PRIMARY KEY,
		v BLOB NOT NULL,
		ea INTEGER NOT NULL
	)`, s.table))
	return err
}

func (s *Store) prepareStatements(ctx context.Context) error {
	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.getStmt, fmt.Sprintf("SELECT v, ea FROM %s WHERE k = ?", s.table)},
		{&s.upsertStmt, fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (?, ?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v, ea = excluded.ea", s.table)},
		// Logically expired rows count as absent.
		{&s.addStmt, fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (?, ?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v, ea = excluded.ea WHERE ea <= ?", s.table)},
		{&s.deleteStmt, fmt.Sprintf("DELETE FROM %s WHERE k = ?", s.table)},
		// Only the expired row seen by Get; a newer write is kept.
		{&s.expireStmt, fmt.Sprintf("DELETE FROM %s WHERE k = ? AND ea <= ?", s.table)},
		{&s.flushStmt, fmt.Sprintf("DELETE FROM %s", s.table)},
		{&s.purgeStmt, fmt.Sprintf("DELETE FROM %s WHERE ea <= ?", s.table)},
	}
	for _, st := range stmts {
		stmt, err := s.db.PrepareContext(ctx, st.query)
		if err != nil {
			return err
		}
		*st.dst = stmt
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	var exp int64
	err := s.getStmt.QueryRowContext(ctx, key).Scan(&v, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	now := s.now().UnixMilli()
	if now >= exp {
		if _, err := s.expireStmt.ExecContext(ctx, key, now); err != nil {
			return nil, false, fmt.Errorf("sqlite: expire %q: %w", key, err)
		}
		return nil, false, nil
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.upsertStmt.ExecContext(ctx, key, value, s.now().Add(ttl).UnixMilli())
	return err
}

func (s *Store) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	now := s.now()
	res, err := s.addStmt.ExecContext(ctx, key, value, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.deleteStmt.ExecContext(ctx, key)
	return err
}

func (s *Store) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, k)
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE k IN (%s)", s.table, placeholders), args...)
	return err
}

func (s *Store) Flush(ctx context.Context) error {
	_, err := s.flushStmt.ExecContext(ctx)
	return err
}

// Purge deletes expired rows and reports how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.purgeStmt.ExecContext(ctx, s.now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close releases the statements and the database.
func (s *Store) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{s.getStmt, s.upsertStmt, s.addStmt, s.deleteStmt, s.expireStmt, s.flushStmt, s.purgeStmt} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}
