package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestHostList_RoundTrip(t *testing.T) {
	m := newTestManager(t)

	hosts := []*HostRecord{
		{Address: "10.0.0.2:3979", Name: "beta", Added: time.Now()},
		{Address: "10.0.0.1:3979", Name: "alpha", Added: time.Now()},
	}
	require.NoError(t, m.SaveHostList(hosts))

	loaded, err := m.LoadHostList()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "10.0.0.1:3979", loaded[0].Address)
	assert.Equal(t, "alpha", loaded[0].Name)
	assert.Equal(t, "10.0.0.2:3979", loaded[1].Address)
}

func TestHostList_SaveReplacesPrevious(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.SaveHostList([]*HostRecord{
		{Address: "10.0.0.1:3979"},
		{Address: "10.0.0.2:3979"},
	}))
	require.NoError(t, m.SaveHostList([]*HostRecord{
		{Address: "10.0.0.3:3979"},
	}))

	loaded, err := m.LoadHostList()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "10.0.0.3:3979", loaded[0].Address)
}

func TestHostList_EmptyDatabase(t *testing.T) {
	m := newTestManager(t)

	loaded, err := m.LoadHostList()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestUnknownContentNames(t *testing.T) {
	m := newTestManager(t)

	name, err := m.GetUnknownContentName("00000005:aa")
	require.NoError(t, err)
	assert.Empty(t, name)

	require.NoError(t, m.SaveUnknownContentName("00000005:aa", "Euro Trains"))

	name, err = m.GetUnknownContentName("00000005:aa")
	require.NoError(t, err)
	assert.Equal(t, "Euro Trains", name)

	all, err := m.LoadUnknownContentNames()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"00000005:aa": "Euro Trains"}, all)
}
