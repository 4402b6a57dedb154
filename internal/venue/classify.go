package venue

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

// Geo-restriction and outage phrasings seen in venue error payloads.
// Best-effort string matching; the set is not assumed complete, an
// unmatched message just falls through to the caller's fallback kind.
var unavailablePatterns = []string{
	"u.s.",
	"restricted",
	"geographic",
	"unavailable in your region",
	"400302",
	"service unavailable",
	"maintenance",
}

var rejectedPatterns = []struct {
	substr string
	kind   domain.ErrorKind
}{
	{"insufficient", domain.KindInsufficientBalance},
	{"min amount", domain.KindBelowMinimumSize},
	{"minimum amount", domain.KindBelowMinimumSize},
	{"too small", domain.KindBelowMinimumSize},
	{"max amount", domain.KindAboveMaximumSize},
	{"too large", domain.KindAboveMaximumSize},
	{"invalid symbol", domain.KindSymbolNotFound},
	{"unknown symbol", domain.KindSymbolNotFound},
	{"invalid currency pair", domain.KindSymbolNotFound},
}

// classify wraps err in a domain.VenueError for this venue. Already
// classified errors pass through untouched; everything else is matched
// against transport failures, HTTP status and known message patterns,
// with fallback as the kind of last resort.
func (a *Adapter) classify(err error, fallback domain.ErrorKind) error {
	if err == nil {
		return nil
	}
	var ve *domain.VenueError
	if errors.As(err, &ve) {
		return err
	}
	return domain.NewVenueError(a.profile.ID, kindOf(err, fallback), err)
}

func kindOf(err error, fallback domain.ErrorKind) domain.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.KindVenueUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.KindVenueUnavailable
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusForbidden, http.StatusUnavailableForLegalReasons,
			http.StatusTooManyRequests, http.StatusServiceUnavailable,
			http.StatusBadGateway, http.StatusGatewayTimeout:
			return domain.KindVenueUnavailable
		case http.StatusNotFound:
			return domain.KindSymbolNotFound
		}
	}

	msg := strings.ToLower(err.Error())
	for _, p := range unavailablePatterns {
		if strings.Contains(msg, p) {
			return domain.KindVenueUnavailable
		}
	}
	for _, p := range rejectedPatterns {
		if strings.Contains(msg, p.substr) {
			return p.kind
		}
	}
	return fallback
}

// isAlreadyClosed reports whether a cancel failed only because the order
// already reached a terminal state on the venue.
func isAlreadyClosed(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "order not found") ||
		strings.Contains(msg, "already") ||
		strings.Contains(msg, "finished")
}
