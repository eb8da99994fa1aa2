package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindcal/internal/models"
)

func TestFileStoreMissingFileReturnsDefaults(t *testing.T) {
	store := NewFileStore(t.TempDir())

	p, err := store.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, 30, p.DefaultReminderMinutes)
	assert.True(t, p.Snooze.Enabled)
}

func TestFileStorePartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`{"defaultReminderMinutes": 45, "homeLocation": {"name": "Home"}}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prefs-u1.json"), data, 0o644))

	p, err := NewFileStore(dir).Get("u1")
	require.NoError(t, err)
	assert.Equal(t, 45, p.DefaultReminderMinutes)
	require.NotNil(t, p.HomeLocation)
	assert.Equal(t, "Home", p.HomeLocation.Name)
	// Fields absent from the file keep their default values.
	assert.Equal(t, 3, p.Snooze.MaxSnoozes)
}

func TestFileStoreInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prefs-u1.json"), []byte("{"), 0o644))

	_, err := NewFileStore(dir).Get("u1")
	assert.Error(t, err)
}

func TestStaticStore(t *testing.T) {
	p := Defaults("u1")
	p.DefaultReminderMinutes = 15
	store := &StaticStore{ByUser: map[string]Preferences{"u1": p}}

	got, err := store.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, 15, got.DefaultReminderMinutes)

	got, err = store.Get("u2")
	require.NoError(t, err)
	assert.Equal(t, 30, got.DefaultReminderMinutes)
	assert.Equal(t, "u2", got.UserID)
}

func TestKnownLocationCaseInsensitive(t *testing.T) {
	p := Defaults("u1")
	p.FrequentLocations = []FrequentLocation{
		{Location: models.Location{Name: "HQ", TravelTimeMinutes: 25}},
	}

	found := p.KnownLocation("hq")
	require.NotNil(t, found)
	assert.Equal(t, 25, found.TravelTimeMinutes)
	assert.Nil(t, p.KnownLocation("elsewhere"))
}

func TestHomeFallsBackToFrequentLocation(t *testing.T) {
	p := Defaults("u1")
	assert.Nil(t, p.Home())

	p.FrequentLocations = []FrequentLocation{
		{Location: models.Location{Name: "Office"}, Category: "work"},
		{Location: models.Location{Name: "My place"}, Category: "home"},
	}
	home := p.Home()
	require.NotNil(t, home)
	assert.Equal(t, "My place", home.Name)

	p.HomeLocation = &models.Location{Name: "Configured"}
	assert.Equal(t, "Configured", p.Home().Name)
}
