package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/datalens-cli/internal/profile"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no record exists for an id.
var ErrNotFound = errors.New("history record not found")

// Record is an immutable snapshot of one profiling run.
type Record struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	ProfiledAt time.Time       `json:"profiled_at"`
	Result     *profile.Result `json:"result"`
}

// Summary is the listing view of a record.
type Summary struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	ProfiledAt time.Time `json:"profiled_at"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"columns"`
	Score      float64   `json:"score"`
}

// NewRecord wraps res with a fresh id and timestamp.
func NewRecord(source string, res *profile.Result) *Record {
	return &Record{
		ID:         uuid.NewString(),
		Source:     source,
		ProfiledAt: time.Now().UTC(),
		Result:     res,
	}
}

// Store keeps records as <id>.json files in a directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store { return &Store{dir: dir} }

// Dir returns the on-disk location of the store.
func (s *Store) Dir() string { return s.dir }

// Save writes rec atomically. Records are never rewritten once saved.
func (s *Store) Save(rec *Record) error {
	if rec == nil || rec.Result == nil {
		return errors.New("history: record has no result")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, err := uuid.Parse(rec.ID); err != nil {
		return fmt.Errorf("history: invalid id %q: %w", rec.ID, err)
	}
	if rec.ProfiledAt.IsZero() {
		rec.ProfiledAt = time.Now().UTC()
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("ensure history dir: %w", err)
	}
	path := s.path(rec.ID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("history: record %s already exists", rec.ID)
	}
	data, err := utils.PrettyJSON(rec)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, data)
}

// Load reads the record with the given id.
func (s *Store) Load(id string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	b, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("parse record %s: %w", id, err)
	}
	return &rec, nil
}

// List returns summaries of all records, newest first. A missing directory is an empty history.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history dir: %w", err)
	}
	var out []Summary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		rec, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			// skip foreign or corrupt files
			continue
		}
		sum := Summary{ID: rec.ID, Source: rec.Source, ProfiledAt: rec.ProfiledAt}
		if rec.Result != nil {
			sum.Rows, sum.Cols, sum.Score = rec.Result.Rows, rec.Result.Cols, rec.Result.Score.Value
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProfiledAt.Equal(out[j].ProfiledAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ProfiledAt.After(out[j].ProfiledAt)
	})
	return out, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}
