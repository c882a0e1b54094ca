package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	internalerrors "github.com/rcourtman/energy-reports/internal/errors"
	"github.com/rcourtman/energy-reports/internal/logging"
	"github.com/rcourtman/energy-reports/internal/models"
	"github.com/rcourtman/energy-reports/internal/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResource(t *testing.T, handler http.HandlerFunc) *Resource {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	cfg, err := resources.Default().Get(resources.Wind)
	require.NoError(t, err)
	return client.Resource(cfg)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	require.Error(t, err)

	client, err := NewClient(ClientConfig{BaseURL: "predictions.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://predictions.example.com", client.baseURL)
}

func TestListSendsYearRangeAndDecodesMinimalShape(t *testing.T) {
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/wind", r.URL.Path)
		assert.Equal(t, "2020", r.URL.Query().Get("start_year"))
		assert.Equal(t, "2023", r.URL.Query().Get("end_year"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"success","predictions":[
			{"Year":2021,"Predicted Production":110.25},
			{"Year":2020.0,"Predicted Production":100}
		]}`)
	})

	records, err := res.List(context.Background(), models.NewYearRange(2020, 2023))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2021, records[0].Year)
	assert.Equal(t, 110.25, records[0].GenerationValue)
	assert.Equal(t, resources.Wind, records[0].ResourceType)
	assert.False(t, records[0].IsSynthetic)
	assert.Equal(t, "wind-2021", records[0].ID)
	assert.Nil(t, records[0].GDP)
}

func TestListDecodesExtendedShapeWithNulls(t *testing.T) {
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"success","predictions":[
			{"id":"abc","Year":"2022","Predicted Production":90.5,"Non-Renewable Energy":400.1,"Population":null,"GDP":2.5,"dateAdded":"2024-01-02T03:04:05Z","isDeleted":true},
			{"Year":2023,"Predicted Production":null},
			{"Year":2024,"Predicted Production":-3}
		]}`)
	})

	records, err := res.List(context.Background(), models.NewYearRange(2020, 2025))
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "abc", rec.ID)
	assert.Equal(t, 2022, rec.Year)
	require.NotNil(t, rec.NonRenewable)
	assert.Equal(t, 400.1, *rec.NonRenewable)
	assert.Nil(t, rec.Population)
	require.NotNil(t, rec.GDP)
	assert.True(t, rec.IsDeleted)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), rec.DateAdded)
}

func TestListFailuresAreNetworkErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":`)
		},
		"error status": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"error","message":"model offline"}`)
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			res := newTestResource(t, handler)
			_, err := res.List(context.Background(), models.NewYearRange(2020, 2021))
			require.Error(t, err)
			assert.True(t, errors.Is(err, internalerrors.ErrNetwork), "got %v", err)
		})
	}
}

func TestListUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(ClientConfig{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)
	cfg, _ := resources.Default().Get(resources.Solar)

	_, err = client.Resource(cfg).List(context.Background(), models.NewYearRange(2020, 2021))
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerrors.ErrNetwork))
	assert.True(t, internalerrors.IsRetryable(err))
}

func TestCreatePostsDraft(t *testing.T) {
	var got WriteRequest
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/wind", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"status":"success"}`)
	})

	err := res.Create(context.Background(), models.Draft{Year: 2024, GenerationValue: 120.5, GDP: models.Float(3)})
	require.NoError(t, err)
	require.NotNil(t, got.Year)
	assert.Equal(t, 2024, *got.Year)
	assert.Equal(t, 120.5, *got.PredictedProduction)
	assert.Equal(t, 3.0, *got.GDP)
	assert.Nil(t, got.IsDeleted)
}

func TestUpdateAndSoftDeleteAreYearKeyed(t *testing.T) {
	var paths []string
	var bodies []map[string]interface{}
	res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		paths = append(paths, r.URL.Path)
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusOK)
	})

	ctx, _ := logging.WithRequestID(context.Background(), "req-1")
	require.NoError(t, res.Update(ctx, 2022, models.Draft{Year: 2022, GenerationValue: 10}))
	require.NoError(t, res.SetDeleted(ctx, 2022, true))
	require.NoError(t, res.SetDeleted(ctx, 2022, false))

	assert.Equal(t, []string{"/api/wind/2022", "/api/wind/2022", "/api/wind/2022"}, paths)
	assert.Equal(t, 10.0, bodies[0]["Predicted Production"])
	assert.Equal(t, true, bodies[1]["isDeleted"])
	assert.Equal(t, false, bodies[2]["isDeleted"])
}

func TestWriteStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		target error
	}{
		{http.StatusNotFound, internalerrors.ErrNotFound},
		{http.StatusBadRequest, internalerrors.ErrValidation},
		{http.StatusBadGateway, internalerrors.ErrNetwork},
	}
	for _, tc := range cases {
		res := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			fmt.Fprint(w, `{"status":"error","message":"nope"}`)
		})
		err := res.SetDeleted(context.Background(), 1999, true)
		require.Error(t, err)
		assert.True(t, errors.Is(err, tc.target), "status %d: %v", tc.status, err)
		assert.Contains(t, err.Error(), "nope")
	}
}
