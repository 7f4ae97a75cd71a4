package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/aluiziolira/catalog-scraper/parser"
)

var (
	// ErrIndexUnavailable is returned when the landing page cannot be fetched.
	ErrIndexUnavailable = errors.New("scraper: index page unavailable")
	// ErrAllCategoriesFailed is returned when no category could be walked.
	ErrAllCategoriesFailed = errors.New("scraper: every category failed")
	// ErrUnpaginatableURL is returned for category URLs that do not end in index.html.
	ErrUnpaginatableURL = errors.New("scraper: category url does not end in " + indexFilename)
)

// Transport error kinds.
const (
	KindTimeout    = "timeout"
	KindConnection = "connection"
	KindOther      = "transport"
)

// TransportError indicates a network-level failure with no HTTP status.
// It is the only error the walker retries.
type TransportError struct {
	URL  string
	Kind string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PageUnavailableError indicates a non-200 response. It ends pagination but
// is not a failure.
type PageUnavailableError struct {
	URL        string
	StatusCode int
}

func (e *PageUnavailableError) Error() string {
	return fmt.Sprintf("page unavailable: %s: http status %d", e.URL, e.StatusCode)
}

func classifyError(url string, err error, statusCode int) error {
	if statusCode != 0 && statusCode != http.StatusOK {
		return &PageUnavailableError{URL: url, StatusCode: statusCode}
	}
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{URL: url, Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{URL: url, Kind: KindTimeout, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &TransportError{URL: url, Kind: KindConnection, Err: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{URL: url, Kind: KindConnection, Err: err}
	}
	return &TransportError{URL: url, Kind: KindOther, Err: err}
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var unavailable *PageUnavailableError
	if errors.As(err, &unavailable) {
		switch unavailable.StatusCode {
		case http.StatusForbidden:
			return "forbidden"
		case http.StatusNotFound:
			return "not_found"
		case http.StatusTooManyRequests:
			return "rate_limited"
		default:
			return "unavailable"
		}
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return transport.Kind
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return "parse"
	}
	if errors.Is(err, ErrUnpaginatableURL) {
		return "invalid_url"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return "other"
}
