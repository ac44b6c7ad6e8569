package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/lotas/fensterordnung/internal/applog"
	"github.com/lotas/fensterordnung/internal/assign"
	"github.com/lotas/fensterordnung/internal/types"
)

// Kind selects which assignment list a row belongs to.
type Kind string

const (
	KindDomain  Kind = "domain"
	KindKeyword Kind = "keyword"
)

// ParseKind accepts "domain" or "keyword" (plural forms too).
func ParseKind(s string) (Kind, error) {
	switch s {
	case "domain", "domains":
		return KindDomain, nil
	case "keyword", "keywords":
		return KindKeyword, nil
	}
	return "", fmt.Errorf("unknown assignment kind %q (want domain or keyword)", s)
}

func kindOf(m types.Mapping) Kind {
	if m.IsKeyword() {
		return KindKeyword
	}
	return KindDomain
}

func emptyMapping(kind Kind) types.Mapping {
	if kind == KindKeyword {
		return types.NewKeywordMapping()
	}
	return types.NewDomainMapping()
}

// LoadAssignments reads one assignment list. Windows come back in the order
// they were first assigned, values in insertion order.
func LoadAssignments(db *sql.DB, kind Kind) (types.Mapping, error) {
	m := emptyMapping(kind)
	rows, err := db.Query(
		"SELECT window_id, value FROM window_assignments WHERE kind = ? ORDER BY id",
		string(kind),
	)
	if err != nil {
		return m, fmt.Errorf("query %s assignments: %w", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		var windowID int
		var value string
		if err := rows.Scan(&windowID, &value); err != nil {
			return m, fmt.Errorf("scan assignment: %w", err)
		}
		m.Add(windowID, value)
	}
	if err := rows.Err(); err != nil {
		return m, fmt.Errorf("iterate assignments: %w", err)
	}
	return m, nil
}

// LoadAll reads both assignment lists.
func LoadAll(db *sql.DB) (domains, keywords types.Mapping, err error) {
	if domains, err = LoadAssignments(db, KindDomain); err != nil {
		return domains, keywords, err
	}
	keywords, err = LoadAssignments(db, KindKeyword)
	return domains, keywords, err
}

// AddAssignment assigns value to a window. It reports false when the value is
// blank or already assigned to that window.
func AddAssignment(db *sql.DB, kind Kind, windowID int, value string) (bool, error) {
	m, err := LoadAssignments(db, kind)
	if err != nil {
		return false, err
	}
	if !m.Add(windowID, value) {
		return false, nil
	}
	vals := m.Values(windowID)
	stored := vals[len(vals)-1]

	if _, err := db.Exec(
		"INSERT INTO window_assignments (kind, window_id, value) VALUES (?, ?, ?)",
		string(kind), windowID, stored,
	); err != nil {
		return false, fmt.Errorf("insert %s assignment %q: %w", kind, stored, err)
	}
	return true, nil
}

// RemoveAssignment removes value from a window. Keywords match ignoring case.
func RemoveAssignment(db *sql.DB, kind Kind, windowID int, value string) (bool, error) {
	m, err := LoadAssignments(db, kind)
	if err != nil {
		return false, err
	}
	before := m.Values(windowID)
	if !m.Remove(windowID, value) {
		return false, nil
	}
	after := make(map[string]bool)
	for _, v := range m.Values(windowID) {
		after[v] = true
	}
	for _, v := range before {
		if after[v] {
			continue
		}
		if _, err := db.Exec(
			"DELETE FROM window_assignments WHERE kind = ? AND window_id = ? AND value = ?",
			string(kind), windowID, v,
		); err != nil {
			return false, fmt.Errorf("delete %s assignment %q: %w", kind, v, err)
		}
	}
	return true, nil
}

// DeleteWindowAssignments removes every assignment of either kind that points
// at windowID. It returns the number of rows removed.
func DeleteWindowAssignments(db *sql.DB, windowID int) (int, error) {
	res, err := db.Exec("DELETE FROM window_assignments WHERE window_id = ?", windowID)
	if err != nil {
		return 0, fmt.Errorf("delete assignments for window %d: %w", windowID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return int(n), nil
}

// PruneStaleAssignments drops assignments for windows that no longer exist.
// Each window is deleted on its own; a failure for one window is logged and
// does not stop the others. It returns the windows actually pruned.
func PruneStaleAssignments(db *sql.DB, exists func(windowID int) bool) ([]int, error) {
	domains, keywords, err := LoadAll(db)
	if err != nil {
		return nil, err
	}

	var pruned []int
	var errs []error
	for _, id := range assign.StaleWindows(domains, keywords, exists) {
		n, err := DeleteWindowAssignments(db, id)
		if err != nil {
			applog.Error("assign.prune", err, "window", id)
			errs = append(errs, err)
			continue
		}
		applog.Info("assign.prune", "window", id, "rows", n)
		pruned = append(pruned, id)
	}
	return pruned, errors.Join(errs...)
}

// saveTx replaces the stored list of m's kind with m.
func saveTx(tx *sql.Tx, m types.Mapping) error {
	kind := kindOf(m)
	if _, err := tx.Exec("DELETE FROM window_assignments WHERE kind = ?", string(kind)); err != nil {
		return fmt.Errorf("clear %s assignments: %w", kind, err)
	}
	for _, e := range m.Entries() {
		for _, v := range e.Values {
			if _, err := tx.Exec(
				"INSERT INTO window_assignments (kind, window_id, value) VALUES (?, ?, ?)",
				string(kind), e.WindowID, v,
			); err != nil {
				return fmt.Errorf("insert %s assignment %q: %w", kind, v, err)
			}
		}
	}
	return nil
}

// AssignmentFile is the import/export document. Each list uses the persisted
// shape: an object keyed by window id with arrays of values.
type AssignmentFile struct {
	Domains  types.Mapping `json:"domains"`
	Keywords types.Mapping `json:"keywords"`
}

// ExportAssignments writes both lists as indented JSON.
func ExportAssignments(db *sql.DB, w io.Writer) error {
	domains, keywords, err := LoadAll(db)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(AssignmentFile{Domains: domains, Keywords: keywords}); err != nil {
		return fmt.Errorf("encode assignments: %w", err)
	}
	return nil
}

// ImportAssignments reads an AssignmentFile and replaces both stored lists in
// one transaction. A missing list is stored as empty.
func ImportAssignments(db *sql.DB, r io.Reader) (AssignmentFile, error) {
	f := AssignmentFile{
		Domains:  types.NewDomainMapping(),
		Keywords: types.NewKeywordMapping(),
	}
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return f, fmt.Errorf("decode assignments: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return f, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range []types.Mapping{f.Domains, f.Keywords} {
		if err := saveTx(tx, m); err != nil {
			return f, err
		}
	}
	if err := tx.Commit(); err != nil {
		return f, fmt.Errorf("commit transaction: %w", err)
	}
	return f, nil
}

// AssignmentStore adapts a database to the watch loop's assignment source.
type AssignmentStore struct {
	DB *sql.DB
}

func (s AssignmentStore) Load() (domains, keywords types.Mapping, err error) {
	return LoadAll(s.DB)
}

func (s AssignmentStore) Prune(exists func(windowID int) bool) ([]int, error) {
	return PruneStaleAssignments(s.DB, exists)
}
