package session

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ferryline/pkg/logger"
)

// Store keeps the few session artifacts that are allowed to survive a
// reload: currently only the pending booking-reference marker. The cart
// itself must never be persisted; OpenStore purges any legacy cart
// fragment it finds from older builds.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// legacy tables written by earlier builds that persisted the whole cart.
var legacyTables = []string{"cart_state", "booking_cart", "search_results"}

func Open(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	s := &Store{db: db, log: log.WithComponent("session-store")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.purgeLegacy(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS session_artifacts (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			expires_at TIMESTAMP,
			updated_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("migrate session store: %w", err)
	}
	return nil
}

// purgeLegacy removes whole-cart persistence left by older builds. A cart
// found at boot is stale by definition and must not be restored.
func (s *Store) purgeLegacy() error {
	for _, table := range legacyTables {
		if _, err := s.db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return fmt.Errorf("purge legacy table %s: %w", table, err)
		}
	}
	res, err := s.db.Exec(`DELETE FROM session_artifacts WHERE key NOT IN ('booking_marker')`)
	if err != nil {
		return fmt.Errorf("purge legacy artifacts: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.log.Info("purged legacy session artifacts", "count", n)
	}
	return nil
}

const markerKey = "booking_marker"

// SaveBookingMarker records the pending booking reference and its expiry.
// A new booking always supersedes the previous marker.
func (s *Store) SaveBookingMarker(reference string, expiresAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO session_artifacts (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		markerKey, reference, expiresAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save booking marker: %w", err)
	}
	return nil
}

// LoadBookingMarker returns the pending booking reference, or empty values
// when there is none or it is already past its expiry.
func (s *Store) LoadBookingMarker() (string, time.Time, error) {
	var reference string
	var expiresAt time.Time
	err := s.db.QueryRow(
		`SELECT value, expires_at FROM session_artifacts WHERE key = ?`, markerKey,
	).Scan(&reference, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("load booking marker: %w", err)
	}
	if !expiresAt.After(time.Now()) {
		if clearErr := s.ClearBookingMarker(); clearErr != nil {
			s.log.Warn("failed to clear expired booking marker", "error", clearErr)
		}
		return "", time.Time{}, nil
	}
	return reference, expiresAt, nil
}

func (s *Store) ClearBookingMarker() error {
	if _, err := s.db.Exec(`DELETE FROM session_artifacts WHERE key = ?`, markerKey); err != nil {
		return fmt.Errorf("clear booking marker: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
