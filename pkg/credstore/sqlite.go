package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wifiprov/wifiprov-go/pkg/wifi"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// SQLite persists the credential and a join history in a SQLite database.
type SQLite struct {
	db *sql.DB
	mu sync.RWMutex
}

// JoinRecord is one successful join.
type JoinRecord struct {
	SSID     string
	BSSID    net.HardwareAddr
	JoinedAt time.Time
}

// OpenSQLite opens or creates the database at path.
// Use ":memory:" for an in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS credential (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		ssid TEXT NOT NULL,
		security INTEGER NOT NULL,
		channel INTEGER NOT NULL,
		key TEXT NOT NULL,
		bssid TEXT,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS joins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ssid TEXT NOT NULL,
		bssid TEXT NOT NULL,
		joined_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_joins_joined_at ON joins(joined_at);
	`)
	return err
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// AddCredentials replaces the stored credential. The joined BSSID is kept
// only when the SSID is unchanged.
func (s *SQLite) AddCredentials(ctx context.Context, entry wire.ConfigAPEntry) error {
	cred, err := Derive(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credential (id, ssid, security, channel, key, bssid, updated_at)
		VALUES (1, ?, ?, ?, ?, NULL, ?)
		ON CONFLICT(id) DO UPDATE SET
			bssid = CASE WHEN credential.ssid = excluded.ssid THEN credential.bssid ELSE NULL END,
			ssid = excluded.ssid,
			security = excluded.security,
			channel = excluded.channel,
			key = excluded.key,
			updated_at = excluded.updated_at
	`, cred.SSID, int64(cred.Security), int64(cred.Channel), cred.Key, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

// ConfiguredBSSID returns the BSSID last joined with the stored credential.
func (s *SQLite) ConfiguredBSSID(ctx context.Context) (net.HardwareAddr, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bssid sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT bssid FROM credential WHERE id = 1`).Scan(&bssid)
	if err != nil || !bssid.Valid {
		return nil, false
	}
	mac, err := net.ParseMAC(bssid.String)
	if err != nil {
		return nil, false
	}
	return mac, true
}

// Credential returns the stored credential.
func (s *SQLite) Credential(ctx context.Context) (wifi.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		cred              wifi.Credential
		security, channel int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT ssid, security, channel, key FROM credential WHERE id = 1
	`).Scan(&cred.SSID, &security, &channel, &cred.Key)
	if errors.Is(err, sql.ErrNoRows) {
		return wifi.Credential{}, wifi.ErrNoCredential
	}
	if err != nil {
		return wifi.Credential{}, fmt.Errorf("load credential: %w", err)
	}
	cred.Security = wifi.Security(security)
	cred.Channel = uint8(channel)
	return cred, nil
}

// RecordJoin attaches bssid to the stored credential and appends the join
// to the history.
func (s *SQLite) RecordJoin(ctx context.Context, ssid string, bssid net.HardwareAddr) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE credential SET bssid = ? WHERE id = 1 AND ssid = ?`, bssid.String(), ssid)
	if err != nil {
		return fmt.Errorf("record bssid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrSSIDMismatch, ssid)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO joins (ssid, bssid, joined_at) VALUES (?, ?, ?)`,
		ssid, bssid.String(), time.Now().UTC()); err != nil {
		return fmt.Errorf("record join: %w", err)
	}
	return tx.Commit()
}

// Joins returns the join history, newest first.
func (s *SQLite) Joins(ctx context.Context, limit int) ([]JoinRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ssid, bssid, joined_at FROM joins ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JoinRecord
	for rows.Next() {
		var r JoinRecord
		var bssid string
		if err := rows.Scan(&r.SSID, &bssid, &r.JoinedAt); err != nil {
			return nil, err
		}
		r.BSSID, _ = net.ParseMAC(bssid)
		out = append(out, r)
	}
	return out, rows.Err()
}
