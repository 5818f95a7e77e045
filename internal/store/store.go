// Package store provides a thin bbolt wrapper for timeseries' local data store.
//
// The store holds presets: named series parameters saved with
// `timeseries preset save` and replayed with `--preset NAME`. Nothing is
// written implicitly.
//
// Buckets:
//
//	presets  preset JSON keyed by name
//	_meta    internal: schema version, created_at
package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/timeseries/internal/config"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketPresets  = []byte("presets")
	bucketInternal = []byte("_meta")
)

// AllBuckets lists every user-facing bucket for stats and clear operations.
var AllBuckets = []string{"presets"}

var (
	// ErrPresetNotFound is returned when no preset matches a name or ID.
	ErrPresetNotFound = errors.New("preset not found")
	// ErrInvalidPresetName is returned for empty or whitespace-bearing names.
	ErrInvalidPresetName = errors.New("invalid preset name")
)

// Store wraps a bbolt database.
type Store struct {
	db     *bolt.DB
	path   string
	logger *slog.Logger
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "creating db directory")
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, path: path, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migration")
	}
	logger.Debug("store opened", "path", path)
	return s, nil
}

func openDB(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db %s", path)
	}
	return db, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.path
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketPresets, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "creating bucket %s", name)
			}
		}

		// Write schema version if not set.
		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(strconv.Itoa(schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// SchemaVersion returns the schema version recorded in the database.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketInternal).Get([]byte("schema_version"))
		if raw == nil {
			return nil
		}
		n, err := strconv.Atoi(string(raw))
		v = n
		return err
	})
	return v, err
}

// ─── Presets ─────────────────────────────────────────────────────────────────

// Preset is a named, saved set of series options.
type Preset struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Options     config.Options `json:"options"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ValidatePresetName rejects names that would be awkward on a command line.
func ValidatePresetName(name string) error {
	if name == "" || strings.ContainsAny(name, " \t\r\n") {
		return errors.Wrapf(ErrInvalidPresetName, "%q", name)
	}
	return nil
}

// PutPreset saves p under its name. A new preset gets a time-ordered UUIDv7
// ID; saving over an existing name keeps its ID and creation time.
func (s *Store) PutPreset(p Preset) (Preset, error) {
	if err := ValidatePresetName(p.Name); err != nil {
		return Preset{}, err
	}
	now := time.Now().UTC()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPresets)
		if v := b.Get([]byte(p.Name)); v != nil {
			var prev Preset
			if err := json.Unmarshal(v, &prev); err != nil {
				return errors.Wrapf(err, "decoding preset %s", p.Name)
			}
			p.ID = prev.ID
			p.CreatedAt = prev.CreatedAt
		} else {
			id, err := uuid.NewV7()
			if err != nil {
				return errors.Wrap(err, "generating preset id")
			}
			p.ID = id.String()
			p.CreatedAt = now
		}
		p.UpdatedAt = now

		data, err := json.Marshal(p)
		if err != nil {
			return errors.Wrap(err, "encoding preset")
		}
		return b.Put([]byte(p.Name), data)
	})
	if err != nil {
		return Preset{}, err
	}
	s.logger.Debug("preset saved", "name", p.Name, "id", p.ID)
	return p, nil
}

// GetPreset looks a preset up by name, falling back to its ID.
func (s *Store) GetPreset(key string) (Preset, error) {
	var p Preset
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPresets)
		if v := b.Get([]byte(key)); v != nil {
			found = true
			return json.Unmarshal(v, &p)
		}
		return b.ForEach(func(_, v []byte) error {
			if found {
				return nil
			}
			var cand Preset
			if err := json.Unmarshal(v, &cand); err != nil {
				return err
			}
			if cand.ID == key {
				p, found = cand, true
			}
			return nil
		})
	})
	if err != nil {
		return Preset{}, errors.Wrapf(err, "reading preset %s", key)
	}
	if !found {
		return Preset{}, errors.Wrapf(ErrPresetNotFound, "%q", key)
	}
	return p, nil
}

// ListPresets returns all presets sorted by name.
func (s *Store) ListPresets() ([]Preset, error) {
	var presets []Preset
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPresets).ForEach(func(k, v []byte) error {
			var p Preset
			if err := json.Unmarshal(v, &p); err != nil {
				return errors.Wrapf(err, "decoding preset %s", k)
			}
			presets = append(presets, p)
			return nil
		})
	})
	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets, err
}

// DeletePreset removes a preset by name or ID.
func (s *Store) DeletePreset(key string) error {
	p, err := s.GetPreset(key)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPresets).Delete([]byte(p.Name))
	})
}

// ExportPreset renders a preset's options as an options file.
func ExportPreset(p Preset) ([]byte, error) {
	return config.MarshalOptions(p.Options)
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all buckets.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var count int
			var bytes int64
			_ = b.ForEach(func(k, v []byte) error {
				count++
				bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: bytes})
		}
		return nil
	})
	return stats, err
}

// FileSize returns the size of the database file on disk.
func (s *Store) FileSize() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, errors.Wrap(err, "stat db")
	}
	return info.Size(), nil
}

// Compact rewrites the database into a fresh file, reclaiming free pages,
// and reopens it. It returns the file sizes before and after.
func (s *Store) Compact() (before, after int64, err error) {
	if before, err = s.FileSize(); err != nil {
		return 0, 0, err
	}

	tmpPath := s.path + ".compact"
	_ = os.Remove(tmpPath)
	dst, err := openDB(tmpPath)
	if err != nil {
		return 0, 0, err
	}
	if err := bolt.Compact(dst, s.db, 64<<20); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return 0, 0, errors.Wrap(err, "compacting db")
	}
	if err := dst.Close(); err != nil {
		return 0, 0, errors.Wrap(err, "closing compacted db")
	}
	if err := s.db.Close(); err != nil {
		return 0, 0, errors.Wrap(err, "closing db")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return 0, 0, errors.Wrap(err, "replacing db")
	}
	if s.db, err = openDB(s.path); err != nil {
		return 0, 0, err
	}
	if after, err = s.FileSize(); err != nil {
		return 0, 0, err
	}
	s.logger.Debug("store compacted", "before", before, "after", after)
	return before, after, nil
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return errors.Wrapf(err, "clearing bucket %s", name)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}
