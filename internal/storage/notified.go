package storage

import (
	"database/sql"
	"fmt"

	"github.com/lotas/fensterordnung/internal/applog"
)

// NotifiedStore persists the set of tab ids already reported as duplicates,
// so suppression survives across runs. It satisfies analyzer.Notifier;
// database errors are logged and treated as "not notified".
type NotifiedStore struct {
	db *sql.DB
}

func NewNotifiedStore(db *sql.DB) *NotifiedStore {
	return &NotifiedStore{db: db}
}

func (s *NotifiedStore) MarkNotified(tabID int) {
	if _, err := s.db.Exec("INSERT OR IGNORE INTO notified_tabs (tab_id) VALUES (?)", tabID); err != nil {
		applog.Error("notified.mark", err, "tab", tabID)
	}
}

func (s *NotifiedStore) ClearNotified(tabID int) {
	if _, err := s.db.Exec("DELETE FROM notified_tabs WHERE tab_id = ?", tabID); err != nil {
		applog.Error("notified.clear", err, "tab", tabID)
	}
}

func (s *NotifiedStore) IsNotified(tabID int) bool {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM notified_tabs WHERE tab_id = ?", tabID).Scan(&n); err != nil {
		applog.Error("notified.check", err, "tab", tabID)
		return false
	}
	return n > 0
}

// Retain drops every notified id not in live. Tab ids are only meaningful
// within one browser session, so callers prune against each new snapshot.
func (s *NotifiedStore) Retain(live []int) (int, error) {
	keep := make(map[int]bool, len(live))
	for _, id := range live {
		keep[id] = true
	}

	rows, err := s.db.Query("SELECT tab_id FROM notified_tabs")
	if err != nil {
		return 0, fmt.Errorf("query notified tabs: %w", err)
	}
	var gone []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan notified tab: %w", err)
		}
		if !keep[id] {
			gone = append(gone, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate notified tabs: %w", err)
	}

	for _, id := range gone {
		if _, err := s.db.Exec("DELETE FROM notified_tabs WHERE tab_id = ?", id); err != nil {
			return 0, fmt.Errorf("delete notified tab %d: %w", id, err)
		}
	}
	return len(gone), nil
}

// Reset forgets every notified id.
func (s *NotifiedStore) Reset() error {
	if _, err := s.db.Exec("DELETE FROM notified_tabs"); err != nil {
		return fmt.Errorf("reset notified tabs: %w", err)
	}
	return nil
}
