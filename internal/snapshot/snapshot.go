// Package snapshot persists one profile snapshot file per player.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-json"

	"github.com/verte-zerg/leetboard/internal/logging"
	"github.com/verte-zerg/leetboard/internal/model"
)

// FormatVersion is the envelope version written by Save.
const FormatVersion = 1

const tempPrefix = ".snapshot-"

// Store reads and writes snapshot files in a flat directory.
type Store struct {
	dir string
	now func() time.Time
}

// SaveError reports a failed write for one identity.
type SaveError struct {
	Identity int64
	Err      error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save snapshot %d: %v", e.Identity, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// LoadError reports a snapshot file that could not be read.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load snapshot %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadResult holds every readable record plus per-file failures.
type LoadResult struct {
	Records  []model.PlayerRecord
	Failures []*LoadError
}

type envelope struct {
	Version int                `json:"version"`
	SavedAt time.Time          `json:"saved_at"`
	Record  model.PlayerRecord `json:"record"`
}

// Open returns a Store rooted at dir. The directory is created lazily on Save.
func Open(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// FileName returns the file name used for a record.
func FileName(identity int64, displayName string) string {
	return strconv.FormatInt(identity, 10) + "-" + sanitizeName(displayName)
}

// Save writes rec atomically, replacing any earlier snapshot for the same identity.
func (s *Store) Save(rec model.PlayerRecord) error {
	if err := s.save(rec); err != nil {
		return &SaveError{Identity: rec.Identity, Err: err}
	}
	return nil
}

// SaveAll saves each record and returns the failures. One failure does not stop the rest.
func (s *Store) SaveAll(recs []model.PlayerRecord) []error {
	var errs []error
	for _, rec := range recs {
		if err := s.Save(rec); err != nil {
			logging.Warn().Err(err).Int64("identity", rec.Identity).Msg("snapshot not saved")
			errs = append(errs, err)
		}
	}
	return errs
}

func (s *Store) save(rec model.PlayerRecord) error {
	if rec.Identity == 0 {
		return errors.New("identity is zero")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	data, err := json.Marshal(envelope{Version: FormatVersion, SavedAt: s.now().UTC(), Record: rec})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	name := FileName(rec.Identity, rec.DisplayName)
	if err := writeFileAtomic(filepath.Join(s.dir, name), data); err != nil {
		return err
	}
	return s.removeStale(rec.Identity, name)
}

func writeFileAtomic(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to chmod snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// removeStale deletes snapshots for identity written under an older display name.
func (s *Store) removeStale(identity int64, keep string) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read snapshot dir: %w", err)
	}
	prefix := strconv.FormatInt(identity, 10) + "-"
	for _, entry := range entries {
		name := entry.Name()
		if name == keep || entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove stale snapshot %s: %w", name, err)
		}
		logging.Debug().Str("file", name).Int64("identity", identity).Msg("removed stale snapshot")
	}
	return nil
}

// LoadAll reads every snapshot in the directory. Unreadable files are
// reported in LoadResult.Failures and skipped. The error is non-nil only
// when the directory itself cannot be listed. Records are sorted by identity.
func (s *Store) LoadAll() (LoadResult, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return LoadResult{}, nil
		}
		return LoadResult{}, fmt.Errorf("failed to read snapshot dir: %w", err)
	}

	var result LoadResult
	byIdentity := make(map[int64]int)
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, tempPrefix) {
			continue
		}
		rec, err := readSnapshot(filepath.Join(s.dir, name))
		if err != nil {
			loadErr := &LoadError{File: name, Err: err}
			logging.Warn().Err(loadErr).Msg("skipping unreadable snapshot")
			result.Failures = append(result.Failures, loadErr)
			continue
		}
		if idx, ok := byIdentity[rec.Identity]; ok {
			if rec.FetchedAt.After(result.Records[idx].FetchedAt) {
				result.Records[idx] = rec
			}
			logging.Warn().Str("file", name).Int64("identity", rec.Identity).Msg("duplicate snapshot identity")
			continue
		}
		byIdentity[rec.Identity] = len(result.Records)
		result.Records = append(result.Records, rec)
		logging.Debug().Str("file", name).Msg("loaded snapshot")
	}

	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].Identity < result.Records[j].Identity
	})
	return result, nil
}

func readSnapshot(path string) (model.PlayerRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.PlayerRecord{}, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.PlayerRecord{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if env.Version != FormatVersion {
		return model.PlayerRecord{}, fmt.Errorf("unsupported snapshot version %d", env.Version)
	}
	if env.Record.Identity == 0 {
		return model.PlayerRecord{}, errors.New("snapshot has no identity")
	}
	return env.Record, nil
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '/' || r == '\\' || r == os.PathSeparator:
			b.WriteRune('_')
		case unicode.IsControl(r):
			b.WriteRune('_')
		case i == 0 && r == '.':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
