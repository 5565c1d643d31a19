package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewBookingCode returns a human-readable code such as BK250301-9F2C1A7E.
func NewBookingCode(now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "BK" + now.Format("060102") + "-" + id[:8]
}
