package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/lawnchairsociety/tiledwfc/internal/wfc"
)

// Run is one persisted generation run.
type Run struct {
	ID          int64     `json:"id"`
	Tileset     string    `json:"tileset"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Seed        string    `json:"seed"`
	Status      string    `json:"status"`
	Steps       int       `json:"steps"`
	Attempts    int       `json:"attempts"`
	Observed    []int     `json:"observed"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewRun builds a Run from a finished result.
func NewRun(tileset string, res *wfc.Result, attempts int) *Run {
	return &Run{
		Tileset:  tileset,
		Width:    res.Width,
		Height:   res.Height,
		Seed:     res.Seed.String(),
		Status:   res.Status.String(),
		Steps:    res.Steps,
		Attempts: attempts,
		Observed: res.Observed,
	}
}

const runColumns = `id, tileset, width, height, seed, status, steps, attempts, observed, COALESCE(fingerprint, ''), created_at`

// fingerprint identifies a run by everything that determines its grid.
func fingerprint(run *Run) string {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	for _, s := range []string{run.Tileset, run.Seed, run.Status} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	for _, n := range append([]int{run.Width, run.Height}, run.Observed...) {
		binary.LittleEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SaveRun inserts run and sets its ID, Fingerprint and CreatedAt. A run
// whose fingerprint is already stored is not inserted again: run takes the
// stored ID and CreatedAt and ErrDuplicateRun is returned.
func (s *Store) SaveRun(run *Run) error {
	observed, err := json.Marshal(run.Observed)
	if err != nil {
		return fmt.Errorf("failed to encode observed grid: %w", err)
	}
	if run.Observed == nil {
		observed = []byte("[]")
	}
	run.Fingerprint = fingerprint(run)
	run.CreatedAt = time.Now().UTC().Truncate(time.Second)

	query := s.qb.BuildWithReturning(`
		INSERT INTO runs (tileset, width, height, seed, status, steps, attempts, observed, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, "id")
	args := []any{run.Tileset, run.Width, run.Height, run.Seed, run.Status,
		run.Steps, run.Attempts, string(observed), run.Fingerprint, run.CreatedAt}

	if s.dialect.SupportsLastInsertID() {
		var result sql.Result
		result, err = s.db.Exec(query, args...)
		if err == nil {
			run.ID, err = result.LastInsertId()
			return err
		}
	} else {
		err = s.db.QueryRow(query, args...).Scan(&run.ID)
		if err == nil {
			return nil
		}
	}

	if s.dialect.IsDuplicateKeyError(err) {
		existing := s.db.QueryRow(s.qb.Build(`SELECT id, created_at FROM runs WHERE fingerprint = ?`), run.Fingerprint)
		if scanErr := existing.Scan(&run.ID, &run.CreatedAt); scanErr != nil {
			return fmt.Errorf("failed to look up duplicate run: %w", scanErr)
		}
		return fmt.Errorf("%w: id %d", ErrDuplicateRun, run.ID)
	}
	return fmt.Errorf("failed to insert run: %w", err)
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(id int64) (*Run, error) {
	row := s.db.QueryRow(s.qb.Build(`SELECT `+runColumns+` FROM runs WHERE id = ?`), id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return run, err
}

// ListRuns returns the newest runs first, optionally for one tileset only.
func (s *Store) ListRuns(tileset string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if tileset == "" {
		rows, err = s.db.Query(s.qb.Build(`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`), limit)
	} else {
		rows, err = s.db.Query(s.qb.Build(`SELECT `+runColumns+` FROM runs WHERE tileset = ? ORDER BY id DESC LIMIT ?`), tileset, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CountByStatus returns the number of runs per status.
func (s *Store) CountByStatus() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// DeleteRun removes a run.
func (s *Store) DeleteRun(id int64) error {
	result, err := s.db.Exec(s.qb.Build(`DELETE FROM runs WHERE id = ?`), id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var observed string
	err := row.Scan(&run.ID, &run.Tileset, &run.Width, &run.Height, &run.Seed, &run.Status,
		&run.Steps, &run.Attempts, &observed, &run.Fingerprint, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(observed), &run.Observed); err != nil {
		return nil, fmt.Errorf("run %d: failed to decode observed grid: %w", run.ID, err)
	}
	return run, nil
}
