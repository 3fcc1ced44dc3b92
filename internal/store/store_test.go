package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/linuxmatters/avprocessor/internal/devices"
	"github.com/linuxmatters/avprocessor/internal/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 3, 14, 15, 9, 26, 535, time.UTC)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), WithClock(func() time.Time { return fixedTime }))
	require.NoError(t, err)
	return s
}

func layout(device devices.ID) *processor.Settings {
	crossover := 80
	return &processor.Settings{
		Filters: []processor.Filter{{Speaker: "l", Freq: 1000, Gain: 2, Q: 0.707}},
		Speakers: []processor.Speaker{
			{Speaker: "l", Crossover: &crossover, Distance: 10, Gain: 0},
			{Speaker: "sub1", Distance: 12, Gain: -2, IsSubwoofer: true},
		},
		SelectedDistance: processor.DistanceFeet,
		Device:           device,
	}
}

func TestSaveAndGet(t *testing.T) {
	s := newStore(t)

	v, err := s.Save(layout(devices.OktoDac8))
	require.NoError(t, err)
	assert.Equal(t, 1, v.Version)
	assert.True(t, fixedTime.Truncate(time.Second).Equal(v.VersionDate))

	got, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.True(t, v.VersionDate.Equal(got.VersionDate))
	assert.False(t, got.AppliedVersion)
	assert.Equal(t, *layout(devices.OktoDac8), got.Settings)
}

func TestSaveIncrements(t *testing.T) {
	s := newStore(t)

	for want := 1; want <= 3; want++ {
		v, err := s.Save(layout(devices.HDMI))
		require.NoError(t, err)
		assert.Equal(t, want, v.Version)
	}

	// Numbers are never reused after deleting the newest version.
	require.NoError(t, s.Delete(2))
	v, err := s.Save(layout(devices.HDMI))
	require.NoError(t, err)
	assert.Equal(t, 4, v.Version)
}

func TestSaveRejectsInvalidSettings(t *testing.T) {
	s := newStore(t)

	_, err := s.Save(&processor.Settings{Device: devices.OktoDac8, SelectedDistance: processor.DistanceMS})
	assert.ErrorIs(t, err, processor.ErrNoSpeakers)

	versions, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestGetMissing(t *testing.T) {
	s := newStore(t)
	_, err := s.Get(7)
	assert.ErrorIs(t, err, ErrVersionNotFound)

	_, err = s.Latest()
	assert.ErrorIs(t, err, ErrVersionNotFound)

	_, err = s.Applied()
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestLatest(t *testing.T) {
	s := newStore(t)
	_, err := s.Save(layout(devices.OktoDac8))
	require.NoError(t, err)
	_, err = s.Save(layout(devices.MotuMk5))
	require.NoError(t, err)

	v, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, 2, v.Version)
	assert.Equal(t, devices.MotuMk5, v.Settings.Device)
}

func TestListAndApplied(t *testing.T) {
	s := newStore(t)
	for i := 0; i < 3; i++ {
		_, err := s.Save(layout(devices.ToppingDM7))
		require.NoError(t, err)
	}

	require.NoError(t, s.MarkApplied(2))

	versions, err := s.List()
	require.NoError(t, err)
	require.Len(t, versions, 3)
	for i, v := range versions {
		assert.Equal(t, i+1, v.Version)
		assert.Equal(t, v.Version == 2, v.AppliedVersion)
	}

	applied, err := s.Applied()
	require.NoError(t, err)
	assert.Equal(t, 2, applied.Version)
	assert.True(t, applied.AppliedVersion)

	got, err := s.Get(2)
	require.NoError(t, err)
	assert.True(t, got.AppliedVersion)
}

func TestMarkAppliedMissing(t *testing.T) {
	s := newStore(t)
	assert.ErrorIs(t, s.MarkApplied(1), ErrVersionNotFound)
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	_, err := s.Save(layout(devices.OktoDac8))
	require.NoError(t, err)
	_, err = s.Save(layout(devices.OktoDac8))
	require.NoError(t, err)
	require.NoError(t, s.MarkApplied(1))

	require.NoError(t, s.Delete(1))

	_, err = s.Get(1)
	assert.ErrorIs(t, err, ErrVersionNotFound)
	_, err = s.Applied()
	assert.ErrorIs(t, err, ErrVersionNotFound)

	assert.ErrorIs(t, s.Delete(1), ErrVersionNotFound)

	versions, err := s.List()
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 2, versions[0].Version)
}

func TestListIgnoresForeignFiles(t *testing.T) {
	s := newStore(t)
	_, err := s.Save(layout(devices.OktoDac8))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "version-x.yaml"), []byte("hi"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "version-9.yaml"), 0o755))

	versions, err := s.List()
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestConcurrentSave(t *testing.T) {
	s := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Save(layout(devices.OktoDac8))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	versions, err := s.List()
	require.NoError(t, err)
	require.Len(t, versions, 8)
	assert.Equal(t, 8, versions[7].Version)
}
