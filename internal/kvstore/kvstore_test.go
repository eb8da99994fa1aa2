package kvstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStashAndPop(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Stash(ctx, "k", []byte("v"), time.Hour))

	got, err := m.Pop(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// Pop removes the entry.
	got, err = m.Pop(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryPopMissing(t *testing.T) {
	got, err := NewMemory().Pop(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	now := time.Now()
	m.SetClock(func() time.Time { return now })
	require.NoError(t, m.Stash(ctx, "k", []byte("v"), time.Minute))

	m.SetClock(func() time.Time { return now.Add(2 * time.Minute) })
	got, err := m.Pop(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStashCopiesValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	value := []byte("original")
	require.NoError(t, m.Stash(ctx, "k", value, time.Hour))
	value[0] = 'X'

	got, err := m.Pop(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)
}

func TestSQLiteStashAndPop(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Stash(ctx, "k", []byte("v1"), time.Hour))
	require.NoError(t, s.Stash(ctx, "k", []byte("v2"), time.Hour))

	got, err := s.Pop(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	got, err = s.Pop(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteExpiry(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Stash(ctx, "k", []byte("v"), -time.Second))

	got, err := s.Pop(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}
