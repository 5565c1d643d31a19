// Package catalog talks to the movie catalog service, which owns showtimes
// and seat price tables.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
	redisrepo "github.com/kirinyoku/cinema-booking/internal/repository/redis"
)

var (
	ErrMovieNotFound    = errors.New("movie not found")
	ErrShowtimeNotFound = errors.New("showtime not found")
	ErrUnavailable      = errors.New("catalog unavailable")
)

type Config struct {
	BaseURL      string
	ServiceToken string
	Timeout      time.Duration
	CacheTTL     time.Duration
}

type Prices struct {
	Standard int64 `json:"standard"`
	VIP      int64 `json:"vip"`
	Couple   int64 `json:"couple"`
}

type Showtime struct {
	Cinema string   `json:"cinema"`
	Date   string   `json:"date"`
	Times  []string `json:"times"`
	Format string   `json:"format"`
}

type Movie struct {
	Name      string     `json:"name"`
	Avatar    string     `json:"avatar"`
	Prices    Prices     `json:"prices"`
	Showtimes []Showtime `json:"showtimes"`
}

type envelope struct {
	Code string `json:"code"`
	Data *Movie `json:"data"`
}

type Client struct {
	http  *http.Client
	cache *redisrepo.Cache
	cfg   Config
}

// New builds a catalog client. cache may be nil.
func New(cfg Config, cache *redisrepo.Cache) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 60 * time.Second
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		http:  &http.Client{Timeout: cfg.Timeout},
		cache: cache,
		cfg:   cfg,
	}
}

// GetMovie fetches one movie document, served from cache when possible.
//
// Returns:
//   - error: catalog.ErrMovieNotFound if the catalog does not know movieID.
//   - error: catalog.ErrUnavailable on transport failures and 5xx answers.
func (c *Client) GetMovie(ctx context.Context, movieID string) (Movie, error) {
	const op = "catalog.Client.GetMovie"

	m, err := redisrepo.GetOrSetJSON(ctx, c.cache, redisrepo.KeyCatalogMovie(movieID), c.cfg.CacheTTL,
		func(ctx context.Context) (Movie, error) {
			return c.fetchMovie(ctx, movieID)
		},
	)
	if err != nil {
		return Movie{}, fmt.Errorf("%s:%w", op, err)
	}

	return m, nil
}

func (c *Client) fetchMovie(ctx context.Context, movieID string) (Movie, error) {
	u := c.cfg.BaseURL + "/api/catalog/client/movies/" + url.PathEscape(movieID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Movie{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.ServiceToken != "" {
		req.Header.Set("X-Service-Token", c.cfg.ServiceToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Movie{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Movie{}, ErrMovieNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return Movie{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Movie{}, fmt.Errorf("catalog answered status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		return Movie{}, fmt.Errorf("decode catalog response: %w", err)
	}
	if env.Code != "success" || env.Data == nil {
		return Movie{}, ErrMovieNotFound
	}

	return *env.Data, nil
}

// GetShowtimeAndPricing resolves one screening and its seat price table.
//
// Returns:
//   - error: catalog.ErrMovieNotFound or catalog.ErrShowtimeNotFound.
func (c *Client) GetShowtimeAndPricing(ctx context.Context, key domain.ShowtimeKey) (*domain.ShowtimePricing, error) {
	const op = "catalog.Client.GetShowtimeAndPricing"

	m, err := c.GetMovie(ctx, key.MovieID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	st, ok := m.findShowtime(key)
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrShowtimeNotFound)
	}

	prices := make(map[domain.SeatType]int64, 3)
	for t, p := range map[domain.SeatType]int64{
		domain.SeatStandard: m.Prices.Standard,
		domain.SeatVIP:      m.Prices.VIP,
		domain.SeatCouple:   m.Prices.Couple,
	} {
		if p > 0 {
			prices[t] = p
		}
	}

	return &domain.ShowtimePricing{
		MovieName:   m.Name,
		MovieAvatar: m.Avatar,
		FormatLabel: st.Format,
		SeatPrices:  prices,
	}, nil
}

func (m Movie) findShowtime(key domain.ShowtimeKey) (Showtime, bool) {
	for _, st := range m.Showtimes {
		if st.Cinema != key.Cinema {
			continue
		}
		date, err := domain.ParseShowDate(st.Date)
		if err != nil || date != key.Date {
			continue
		}
		if slices.Contains(st.Times, key.Time) {
			return st, true
		}
	}
	return Showtime{}, false
}
