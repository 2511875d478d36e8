// Package presets persists named snapshots of feature selections.
//
// The collection lives in a single TOML file that is rewritten in full on
// every save. Loading never fails: a missing or unreadable file yields an
// empty collection.
package presets

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"buildbench/internal/fileutil"
	"buildbench/internal/logging"
	"buildbench/internal/workspace"
)

var (
	// ErrEmptyName rejects a save with a blank preset name.
	ErrEmptyName = errors.New("preset name is empty")
	// ErrPersist wraps failures writing the preset file.
	ErrPersist = errors.New("failed to persist presets")
)

// Entry is one program and the features it builds with.
type Entry struct {
	Program  string   `toml:"program" json:"program"`
	Features []string `toml:"features" json:"features"`
}

// Preset is a named list of entries. Names need not be unique.
type Preset struct {
	Name    string  `toml:"name" json:"name"`
	Entries []Entry `toml:"entry" json:"entries"`
}

// Clone returns a deep copy.
func (p Preset) Clone() Preset {
	out := Preset{Name: p.Name}
	if p.Entries != nil {
		out.Entries = make([]Entry, len(p.Entries))
		for i, e := range p.Entries {
			out.Entries[i] = Entry{Program: e.Program, Features: append([]string(nil), e.Features...)}
		}
	}
	return out
}

// Programs lists the entry program names in order.
func (p Preset) Programs() []string {
	names := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		names[i] = e.Program
	}
	return names
}

// FromPrograms captures every program with at least one selected feature. It
// returns false when nothing qualifies.
func FromPrograms(name string, programs []workspace.Program) (Preset, bool) {
	p := Preset{Name: name}
	for i := range programs {
		selected := programs[i].SelectedFeatures()
		if len(selected) == 0 {
			continue
		}
		p.Entries = append(p.Entries, Entry{Program: programs[i].Name, Features: selected})
	}
	return p, len(p.Entries) > 0
}

// Describe renders one "program: f1, f2" line per entry.
func Describe(p Preset) string {
	lines := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		if len(e.Features) == 0 {
			lines = append(lines, e.Program)
			continue
		}
		lines = append(lines, e.Program+": "+strings.Join(e.Features, ", "))
	}
	return strings.Join(lines, "\n")
}

type document struct {
	Presets []Preset `toml:"preset"`
}

// Store is the in-memory preset collection backed by a file.
type Store struct {
	mu      sync.Mutex
	path    string
	lock    *flock.Flock
	presets []Preset
	logger  *slog.Logger
}

// Load reads the collection at path. Read and parse failures are logged and
// produce an empty collection.
func Load(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logging.NewComponentLogger(logger, "presets"),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(s.logger, "preset file unreadable; starting empty", "presets_read_failed",
				logging.String("path", path),
				logging.Error(err),
			)
		}
		return s
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		logging.WarnWithContext(s.logger, "preset file malformed; starting empty", "presets_parse_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the next save rewrites the file"),
		)
		return s
	}
	for _, p := range doc.Presets {
		if p = sanitize(p); strings.TrimSpace(p.Name) != "" {
			s.presets = append(s.presets, p)
		}
	}
	s.logger.Debug("presets loaded", logging.String("path", path), logging.Int("count", len(s.presets)))
	return s
}

func sanitize(p Preset) Preset {
	entries := p.Entries[:0:0]
	for _, e := range p.Entries {
		if e.Program = strings.TrimSpace(e.Program); e.Program != "" {
			entries = append(entries, e)
		}
	}
	p.Entries = entries
	return p
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Presets returns copies of every preset in save order.
func (s *Store) Presets() []Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Preset, len(s.presets))
	for i, p := range s.presets {
		out[i] = p.Clone()
	}
	return out
}

// Lookup returns the most recently saved preset called name.
func (s *Store) Lookup(name string) (Preset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.presets) - 1; i >= 0; i-- {
		if s.presets[i].Name == name {
			return s.presets[i].Clone(), true
		}
	}
	return Preset{}, false
}

// Save appends a preset built from programs and rewrites the file. The name
// is a display label kept exactly as given; only a blank one is rejected. ok
// is false, with nothing changed, when no program has a selected feature. On
// a write failure the in-memory collection is left as it was.
func (s *Store) Save(name string, programs []workspace.Program) (Preset, bool, error) {
	if strings.TrimSpace(name) == "" {
		return Preset{}, false, ErrEmptyName
	}
	p, ok := FromPrograms(name, programs)
	if !ok {
		return Preset{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets = append(s.presets, p)
	if err := s.persist(); err != nil {
		s.presets = s.presets[:len(s.presets)-1]
		s.logger.Error("preset save failed",
			logging.String("preset", name),
			logging.String("path", s.path),
			logging.Error(err),
		)
		return Preset{}, false, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.logger.Info("preset saved",
		logging.String("preset", name),
		logging.Int("programs", len(p.Entries)),
	)
	return p.Clone(), true, nil
}

func (s *Store) persist() error {
	data, err := toml.Marshal(document{Presets: s.presets})
	if err != nil {
		return fmt.Errorf("encode presets: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preset directory: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock preset file: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release preset lock", logging.Error(err))
		}
	}()
	return fileutil.WriteFileAtomic(s.path, data, 0o644)
}
