package redis

import (
	"fmt"
	"net/url"

	"github.com/kirinyoku/cinema-booking/internal/domain"
)

const ns = "cinema:v1"

// showtimeID renders a showtime key; components are escaped so cinema names
// containing ':' cannot collide.
func showtimeID(k domain.ShowtimeKey) string {
	return fmt.Sprintf("%s:%s:%s:%s",
		url.QueryEscape(k.MovieID), url.QueryEscape(k.Cinema), k.Date, url.QueryEscape(k.Time))
}

func KeyShowtimeSeats(k domain.ShowtimeKey) string {
	return fmt.Sprintf("%s:showtime:%s:seats", ns, showtimeID(k))
}

func KeyCatalogMovie(movieID string) string {
	return fmt.Sprintf("%s:catalog:movie:%s", ns, url.QueryEscape(movieID))
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemCreate(idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%s", ns, idemKey)
}

func ChannelShowtimeChanged() string {
	return ns + ":showtimes:changed"
}
