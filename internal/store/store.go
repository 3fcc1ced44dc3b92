// Package store keeps numbered configuration versions on disk, one YAML
// document per version, and remembers which version was last applied to the
// engine.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linuxmatters/avprocessor/internal/processor"
)

// ErrVersionNotFound is returned when a version does not exist.
var ErrVersionNotFound = errors.New("version not found")

const (
	versionPrefix = "version-"
	versionSuffix = ".yaml"
	appliedFile   = "applied"
)

// Version is one stored configuration.
type Version struct {
	Version        int                `json:"version" yaml:"version"`
	VersionDate    time.Time          `json:"versionDate" yaml:"versionDate"`
	AppliedVersion bool               `json:"appliedVersion" yaml:"-"`
	Settings       processor.Settings `json:"settings" yaml:"settings"`
}

// Store is a directory of versions. It is safe for concurrent use.
type Store struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the clock used to stamp new versions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open creates dir if needed and returns a store backed by it.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	s := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Save validates settings and stores them as the next version.
func (s *Store) Save(settings *processor.Settings) (Version, error) {
	if err := settings.Validate(); err != nil {
		return Version{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	numbers, err := s.versionNumbers()
	if err != nil {
		return Version{}, err
	}
	next := 1
	if len(numbers) > 0 {
		next = numbers[len(numbers)-1] + 1
	}

	v := Version{
		Version:     next,
		VersionDate: s.now().UTC().Truncate(time.Second),
		Settings:    *settings,
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return Version{}, fmt.Errorf("failed to encode version %d: %w", next, err)
	}
	if err := writeFileAtomic(s.versionPath(next), data); err != nil {
		return Version{}, fmt.Errorf("failed to write version %d: %w", next, err)
	}
	return v, nil
}

// Get returns a stored version.
func (s *Store) Get(version int) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.read(version)
	if err != nil {
		return Version{}, err
	}
	v.AppliedVersion = s.appliedNumber() == version
	return v, nil
}

// Latest returns the highest numbered version.
func (s *Store) Latest() (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	numbers, err := s.versionNumbers()
	if err != nil {
		return Version{}, err
	}
	if len(numbers) == 0 {
		return Version{}, fmt.Errorf("%w: store is empty", ErrVersionNotFound)
	}

	latest := numbers[len(numbers)-1]
	v, err := s.read(latest)
	if err != nil {
		return Version{}, err
	}
	v.AppliedVersion = s.appliedNumber() == latest
	return v, nil
}

// List returns every version in ascending order.
func (s *Store) List() ([]Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	numbers, err := s.versionNumbers()
	if err != nil {
		return nil, err
	}

	applied := s.appliedNumber()
	versions := make([]Version, 0, len(numbers))
	for _, n := range numbers {
		v, err := s.read(n)
		if err != nil {
			return nil, err
		}
		v.AppliedVersion = n == applied
		versions = append(versions, v)
	}
	return versions, nil
}

// Delete removes a version. Deleting the applied version clears the marker.
func (s *Store) Delete(version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.versionPath(version)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %d", ErrVersionNotFound, version)
		}
		return fmt.Errorf("failed to delete version %d: %w", version, err)
	}

	if s.appliedNumber() == version {
		if err := os.Remove(filepath.Join(s.dir, appliedFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to clear applied version: %w", err)
		}
	}
	return nil
}

// MarkApplied records version as the one running on the engine.
func (s *Store) MarkApplied(version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.versionPath(version)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %d", ErrVersionNotFound, version)
		}
		return fmt.Errorf("failed to stat version %d: %w", version, err)
	}

	data := []byte(strconv.Itoa(version) + "\n")
	if err := writeFileAtomic(filepath.Join(s.dir, appliedFile), data); err != nil {
		return fmt.Errorf("failed to record applied version: %w", err)
	}
	return nil
}

// Applied returns the version last marked as applied.
func (s *Store) Applied() (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.appliedNumber()
	if n == 0 {
		return Version{}, fmt.Errorf("%w: nothing applied", ErrVersionNotFound)
	}
	v, err := s.read(n)
	if err != nil {
		return Version{}, err
	}
	v.AppliedVersion = true
	return v, nil
}

func (s *Store) versionPath(version int) string {
	return filepath.Join(s.dir, versionPrefix+strconv.Itoa(version)+versionSuffix)
}

func (s *Store) read(version int) (Version, error) {
	data, err := os.ReadFile(s.versionPath(version))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Version{}, fmt.Errorf("%w: %d", ErrVersionNotFound, version)
		}
		return Version{}, fmt.Errorf("failed to read version %d: %w", version, err)
	}

	var v Version
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Version{}, fmt.Errorf("failed to parse version %d: %w", version, err)
	}
	return v, nil
}

// versionNumbers lists stored version numbers in ascending order.
func (s *Store) versionNumbers() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	var numbers []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, versionPrefix) || !strings.HasSuffix(name, versionSuffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, versionPrefix), versionSuffix))
		if err != nil || n <= 0 {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

// appliedNumber returns the applied version number, or 0 when none is recorded.
func (s *Store) appliedNumber() int {
	data, err := os.ReadFile(filepath.Join(s.dir, appliedFile))
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return n
}

// writeFileAtomic writes via a temporary file so readers never see a
// partial document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
