package catalog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kirinyoku/cinema-booking/internal/catalog"
	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const movieJSON = `{
  "code": "success",
  "data": {
    "name": "Dune: Part Two",
    "avatar": "https://img.example/dune.jpg",
    "prices": {"standard": 50000, "vip": 60000, "couple": 110000},
    "showtimes": [
      {"cinema": "CGV Vincom", "date": "2025-03-01T00:00:00.000Z", "times": ["10:00", "19:30"], "format": "IMAX 2D"},
      {"cinema": "Lotte Hall", "date": "2025-03-02", "times": ["21:00"], "format": "2D"}
    ]
  }
}`

func newServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("X-Service-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/api/catalog/client/movies/m-1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(movieJSON))
		case "/api/catalog/client/movies/broken":
			w.WriteHeader(http.StatusBadGateway)
		case "/api/catalog/client/movies/soft-missing":
			_, _ = w.Write([]byte(`{"code":"error","message":"not found"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestGetShowtimeAndPricing(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	c := catalog.New(catalog.Config{BaseURL: srv.URL + "/", ServiceToken: "secret"}, nil)
	ctx := context.Background()

	key := domain.ShowtimeKey{MovieID: "m-1", Cinema: "CGV Vincom", Date: "2025-03-01", Time: "19:30"}
	p, err := c.GetShowtimeAndPricing(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Dune: Part Two", p.MovieName)
	assert.Equal(t, "IMAX 2D", p.FormatLabel)
	assert.Equal(t, map[domain.SeatType]int64{
		domain.SeatStandard: 50000,
		domain.SeatVIP:      60000,
		domain.SeatCouple:   110000,
	}, p.SeatPrices)

	tests := []struct {
		name string
		key  domain.ShowtimeKey
		want error
	}{
		{"unknown time", domain.ShowtimeKey{MovieID: "m-1", Cinema: "CGV Vincom", Date: "2025-03-01", Time: "12:00"}, catalog.ErrShowtimeNotFound},
		{"wrong cinema", domain.ShowtimeKey{MovieID: "m-1", Cinema: "Lotte Hall", Date: "2025-03-01", Time: "19:30"}, catalog.ErrShowtimeNotFound},
		{"unknown movie", domain.ShowtimeKey{MovieID: "nope", Cinema: "x", Date: "2025-03-01", Time: "19:30"}, catalog.ErrMovieNotFound},
		{"error envelope", domain.ShowtimeKey{MovieID: "soft-missing", Cinema: "x", Date: "2025-03-01", Time: "19:30"}, catalog.ErrMovieNotFound},
		{"upstream failure", domain.ShowtimeKey{MovieID: "broken", Cinema: "x", Date: "2025-03-01", Time: "19:30"}, catalog.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.GetShowtimeAndPricing(ctx, tt.key)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetMovie_Unauthorized(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	c := catalog.New(catalog.Config{BaseURL: srv.URL}, nil)

	_, err := c.GetMovie(context.Background(), "m-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, catalog.ErrMovieNotFound)
	assert.EqualValues(t, 1, hits.Load())
}
