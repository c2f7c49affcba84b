package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/participium/civimap/internal/model"
)

func TestFetchMapReportsDefaultFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reports", r.URL.Path)
		assert.Equal(t, "Assigned,In Progress,Suspended,Resolved", r.URL.Query().Get("status"))
		assert.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, `[{"id":1,"title":"Broken light","status":"Assigned","location":{"lat":45.07,"lng":7.68}}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	reports, err := c.FetchMapReports(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].ID)
	assert.Equal(t, model.StatusAssigned, reports[0].Status)
	assert.Equal(t, 45.07, reports[0].Location.Lat)
}

func TestFetchMapReportsCustomFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Resolved", r.URL.Query().Get("status"))
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	reports, err := c.FetchMapReports(context.Background(), []string{"Resolved"})
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestClientBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "sekrit") // trailing slash must not double up
	_, err := c.FetchMapReports(context.Background(), nil)
	require.NoError(t, err)
}

func TestSubmitReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/reports", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload model.NewReport
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Pothole", payload.Title)
		assert.Equal(t, 45.07, payload.Location.Lat)

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":42,"title":"Pothole","status":"Pending Approval"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	created, err := c.SubmitReport(context.Background(), model.NewReport{
		Title:      "Pothole",
		CategoryID: 3,
		Location:   model.GeoPoint{Lat: 45.07, Lng: 7.68},
	})
	require.NoError(t, err)
	assert.Equal(t, 42, created.ID)
	assert.Equal(t, model.StatusPendingApproval, created.Status)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.FetchMapReports(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClientNoRetryOnClientError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.FetchMapReports(context.Background(), nil)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClientGivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.FetchMapReports(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, int32(maxRetries), hits.Load())
}
