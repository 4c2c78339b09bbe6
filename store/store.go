// Package store persists calibrated curve snapshots in SQLite or Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // Postgres driver
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/meenmo/latent/repo"
	"github.com/meenmo/latent/utils"
)

// ErrNotFound is returned when no snapshot exists for a name.
var ErrNotFound = errors.New("store: snapshot not found")

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Snapshot is one stored calibration of a named curve.
type Snapshot struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Kind       repo.Kind   `json:"kind"`
	Settlement time.Time   `json:"settlement"`
	DayCount   string      `json:"day_count"`
	Nodes      []repo.Node `json:"nodes"`
	CreatedAt  time.Time   `json:"created_at"`
}

// SnapshotOf captures a curve under name.
func SnapshotOf(name string, c repo.RepoCurve) Snapshot {
	return Snapshot{
		Name:       name,
		Kind:       c.Kind(),
		Settlement: c.Settlement(),
		DayCount:   c.DayCount(),
		Nodes:      c.Nodes(),
	}
}

// Curve rebuilds the stored curve.
func (s Snapshot) Curve() (repo.RepoCurve, error) {
	return repo.FromSnapshot(s.Kind, s.Settlement, s.DayCount, s.Nodes)
}

// Store wraps the database connection.
type Store struct {
	db     *sql.DB
	driver string
	log    zerolog.Logger
}

// Open connects to the database and verifies the connection.
func Open(driver, dsn string, log zerolog.Logger) (*Store, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3":
		driver = DriverSQLite
	case DriverPostgres, "postgresql", "pg":
		driver = DriverPostgres
	default:
		return nil, fmt.Errorf("store.Open: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		// One writer; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	return &Store{
		db:     db,
		driver: driver,
		log:    log.With().Str("component", "store").Str("driver", driver).Logger(),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver is the normalised driver name.
func (s *Store) Driver() string { return s.driver }

func (s *Store) schema() []string {
	idCol, blobCol := "INTEGER PRIMARY KEY AUTOINCREMENT", "BLOB"
	if s.driver == DriverPostgres {
		idCol, blobCol = "BIGSERIAL PRIMARY KEY", "BYTEA"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS curve_snapshots (
			id ` + idCol + `,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			settlement TEXT NOT NULL,
			day_count TEXT NOT NULL,
			nodes ` + blobCol + ` NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_curve_snapshots_name_id ON curve_snapshots (name, id)`,
	}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store.Migrate: %w", err)
		}
	}
	s.log.Debug().Msg("Schema ready")
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Save inserts a snapshot and returns its id. A zero CreatedAt is set to now.
func (s *Store) Save(ctx context.Context, snap Snapshot) (int64, error) {
	if snap.Name == "" {
		return 0, fmt.Errorf("store.Save: empty name")
	}
	if len(snap.Nodes) == 0 {
		return 0, fmt.Errorf("store.Save: %s has no nodes", snap.Name)
	}
	blob, err := msgpack.Marshal(snap.Nodes)
	if err != nil {
		return 0, fmt.Errorf("store.Save: encode nodes: %w", err)
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}

	q := rebind(s.driver, `INSERT INTO curve_snapshots
		(name, kind, settlement, day_count, nodes, created_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	var id int64
	err = s.db.QueryRowContext(ctx, q,
		snap.Name, string(snap.Kind), utils.FormatDate(snap.Settlement), snap.DayCount,
		blob, snap.CreatedAt.UnixMilli(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store.Save: %w", err)
	}

	s.log.Debug().
		Int64("id", id).
		Str("name", snap.Name).
		Str("kind", string(snap.Kind)).
		Int("nodes", len(snap.Nodes)).
		Msg("Snapshot saved")
	return id, nil
}

const selectColumns = `SELECT id, name, kind, settlement, day_count, nodes, created_at FROM curve_snapshots`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var (
		snap       Snapshot
		kind       string
		settlement string
		blob       []byte
		created    int64
	)
	if err := row.Scan(&snap.ID, &snap.Name, &kind, &settlement, &snap.DayCount, &blob, &created); err != nil {
		return Snapshot{}, err
	}
	snap.Kind = repo.Kind(kind)
	d, err := utils.ParseDate(settlement)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Settlement = d
	if err := msgpack.Unmarshal(blob, &snap.Nodes); err != nil {
		return Snapshot{}, fmt.Errorf("decode nodes: %w", err)
	}
	for i := range snap.Nodes {
		snap.Nodes[i].Date = snap.Nodes[i].Date.UTC()
	}
	snap.CreatedAt = time.UnixMilli(created).UTC()
	return snap, nil
}

// Latest returns the newest snapshot for name.
func (s *Store) Latest(ctx context.Context, name string) (Snapshot, error) {
	q := rebind(s.driver, selectColumns+` WHERE name = ? ORDER BY id DESC LIMIT 1`)
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, q, name))
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("store.Latest: %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("store.Latest: %w", err)
	}
	return snap, nil
}

// List returns the newest snapshot of every curve, ordered by name.
func (s *Store) List(ctx context.Context) ([]Snapshot, error) {
	q := selectColumns + ` AS s WHERE id = (SELECT MAX(id) FROM curve_snapshots WHERE name = s.name) ORDER BY name`
	return s.query(ctx, "store.List", q)
}

// History returns up to limit snapshots for name, newest first.
func (s *Store) History(ctx context.Context, name string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	q := rebind(s.driver, selectColumns+` WHERE name = ? ORDER BY id DESC LIMIT ?`)
	return s.query(ctx, "store.History", q, name, limit)
}

func (s *Store) query(ctx context.Context, fn, q string, args ...any) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return out, nil
}
