package httpgin

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/kirinyoku/cinema-booking/internal/service/booking"
)

var registerOnce sync.Once

// registerValidators teaches gin's validator the vnphone rule and to report
// fields by their JSON names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})

		_ = v.RegisterValidation("vnphone", func(fl validator.FieldLevel) bool {
			return domain.ValidPhone(fl.Field().String())
		})
	})
}

func bindErr(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		details := make([]string, 0, len(ve))
		for _, fe := range ve {
			details = append(details, describeFieldError(fe))
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request",
			Code:    "validation_error",
			Details: details,
		})
		return
	}

	badRequest(c, "malformed request body: "+err.Error())
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "vnphone":
		return fmt.Sprintf("%s %q is not a valid mobile number", field, fe.Value())
	case "email":
		return fmt.Sprintf("%s %q is not a valid email", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s item(s)", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s %s", field, fe.Tag(), fe.Param())
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "bad_request"})
}

func retryAfterSeconds(d time.Duration) string {
	s := int64(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return strconv.FormatInt(s, 10)
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		ve *domain.ValidationError
		ce *domain.ConflictError
		ie *domain.InvalidStateError
		ee *domain.ExpiredError
		su *domain.StoreUnavailableError
		rl *booking.RateLimitedError
	)

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Code: "validation_error", Details: ve.Problems})
	case errors.As(err, &ce):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:            "some seats are no longer available",
			Code:             "seats_unavailable",
			UnavailableSeats: ce.Seats,
		})
	case errors.As(err, &ie):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ie.Error(), Code: "invalid_state"})
	case errors.As(err, &ee):
		c.JSON(http.StatusGone, ErrorResponse{Error: ee.Error(), Code: "booking_expired"})
	case errors.As(err, &rl):
		c.Header("Retry-After", retryAfterSeconds(rl.RetryAfter))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests", Code: "rate_limited"})
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found", Code: "booking_not_found"})
	case errors.Is(err, booking.ErrMovieNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "movie not found", Code: "movie_not_found"})
	case errors.Is(err, booking.ErrShowtimeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "showtime not found", Code: "showtime_not_found"})
	case errors.Is(err, booking.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "booking was modified concurrently, retry", Code: "concurrent_update"})
	case errors.As(err, &su),
		errors.Is(err, booking.ErrCatalogUnavailable),
		errors.Is(err, booking.ErrCodeExhausted):
		_ = c.Error(err)
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "service temporarily unavailable", Code: "unavailable"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "internal_error"})
	}
}
