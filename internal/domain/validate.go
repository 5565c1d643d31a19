package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	phoneRe = regexp.MustCompile(`^(?:\+?84|0)[35789][0-9]{8}$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidPhone accepts Vietnamese mobile numbers: 0 or (+)84, a carrier digit in
// {3,5,7,8,9}, then eight digits. Spaces and dots are ignored.
func ValidPhone(phone string) bool {
	p := strings.NewReplacer(" ", "", ".", "", "-", "").Replace(phone)
	return phoneRe.MatchString(p)
}

func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ParseShowDate normalises a showtime date (YYYY-MM-DD or RFC3339) to YYYY-MM-DD.
func ParseShowDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Format(time.DateOnly), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(time.DateOnly), nil
	}
	return "", invalid("showtimeDate", fmt.Sprintf("%q is not a date", s))
}

func (k ShowtimeKey) Validate() error {
	var problems []string
	if strings.TrimSpace(k.MovieID) == "" {
		problems = append(problems, "movieId is required")
	}
	if strings.TrimSpace(k.Cinema) == "" {
		problems = append(problems, "cinema is required")
	}
	if _, err := time.Parse(time.DateOnly, k.Date); err != nil {
		problems = append(problems, "date must be YYYY-MM-DD")
	}
	if strings.TrimSpace(k.Time) == "" {
		problems = append(problems, "time is required")
	}
	if len(problems) > 0 {
		return invalid("showtime", problems...)
	}
	return nil
}

func validateSeats(seats []Seat) error {
	if len(seats) == 0 {
		return invalid("seats", "at least one seat is required")
	}

	var problems []string
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		if strings.TrimSpace(s.Number) == "" {
			problems = append(problems, "seat number is required")
			continue
		}
		if _, dup := seen[s.Number]; dup {
			problems = append(problems, fmt.Sprintf("seat %s requested twice", s.Number))
		}
		seen[s.Number] = struct{}{}
		if !s.Type.Valid() {
			problems = append(problems, fmt.Sprintf("seat %s has unknown type %q", s.Number, s.Type))
		}
		if s.Price <= 0 {
			problems = append(problems, fmt.Sprintf("seat %s has non-positive price %d", s.Number, s.Price))
		}
	}
	if len(problems) > 0 {
		return invalid("seats", problems...)
	}
	return nil
}

// validateCustomer checks the fields required once a booking leaves the held state.
func validateCustomer(c Customer) error {
	var problems []string
	if strings.TrimSpace(c.FullName) == "" {
		problems = append(problems, "fullName is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		problems = append(problems, "phone is required")
	} else if !ValidPhone(c.Phone) {
		problems = append(problems, fmt.Sprintf("phone %q is not a valid mobile number", c.Phone))
	}
	if c.Email != "" && !ValidEmail(c.Email) {
		problems = append(problems, fmt.Sprintf("email %q is invalid", c.Email))
	}
	if len(problems) > 0 {
		return invalid("customer", problems...)
	}
	return nil
}

// ValidateSeatPrices compares requested seats with the catalog's price table and
// reports every mismatch.
func ValidateSeatPrices(seats []Seat, prices map[SeatType]int64) error {
	if len(prices) == 0 {
		return invalid("seats", "catalog has no price table for this showtime")
	}

	var problems []string
	for _, s := range seats {
		expected, ok := prices[s.Type]
		if !ok || expected <= 0 {
			problems = append(problems, fmt.Sprintf("seat type %q is not sold for this showtime", s.Type))
			continue
		}
		if s.Price != expected {
			problems = append(problems, fmt.Sprintf("seat %s: expected price %d, got %d", s.Number, expected, s.Price))
		}
	}
	if len(problems) > 0 {
		return invalid("seats", problems...)
	}
	return nil
}
