package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/participium/civimap/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	reports := []model.Report{
		{
			ID:          7,
			Title:       "Broken streetlight",
			Description: "Dark corner at night",
			Status:      model.StatusAssigned,
			Category:    model.Category{ID: 2, Name: "Lighting"},
			Location:    model.GeoPoint{Lat: 45.0703, Lng: 7.6869},
			Address:     "Via Po 12, Torino",
			CreatedAt:   "2026-08-01T10:00:00Z",
		},
		{
			ID:       9,
			Title:    "Pothole",
			Status:   model.StatusInProgress,
			Location: model.GeoPoint{Lat: 45.0612, Lng: 7.6781},
		},
	}

	require.NoError(t, store.ReplaceReports(reports))

	loaded, err := store.LoadReports()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, 7, loaded[0].ID)
	assert.Equal(t, "Broken streetlight", loaded[0].Title)
	assert.Equal(t, model.StatusAssigned, loaded[0].Status)
	assert.Equal(t, "Lighting", loaded[0].Category.Name)
	assert.Equal(t, 45.0703, loaded[0].Location.Lat)
	assert.Equal(t, "Via Po 12, Torino", loaded[0].Address)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStoreReplaceIsWholesale(t *testing.T) {
	store := newTestStore(t)

	first := []model.Report{
		{ID: 1, Title: "Old", Status: model.StatusResolved},
		{ID: 2, Title: "Also old", Status: model.StatusResolved},
	}
	require.NoError(t, store.ReplaceReports(first))

	second := []model.Report{
		{ID: 3, Title: "New", Status: model.StatusAssigned},
	}
	require.NoError(t, store.ReplaceReports(second))

	loaded, err := store.LoadReports()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 3, loaded[0].ID)
}

func TestStoreEmpty(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.LoadReports()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	// Replacing with an empty list clears the snapshot.
	require.NoError(t, store.ReplaceReports([]model.Report{{ID: 1, Title: "x", Status: model.StatusAssigned}}))
	require.NoError(t, store.ReplaceReports(nil))
	count, err = store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}
