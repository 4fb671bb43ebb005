package app

import (
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// ErrNilOption is returned when an option receives a nil value.
var ErrNilOption = errors.New("option value must not be nil")

// Option configures Open.
type Option func(*settings) error

type settings struct {
	logger     *slog.Logger
	clock      func() time.Time
	httpClient *http.Client
}

// WithLogger replaces the logger built from the logging config.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			return ErrNilOption
		}

		s.logger = logger

		return nil
	}
}

// WithClock replaces the coordinator's wall clock.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) error {
		if clock == nil {
			return ErrNilOption
		}

		s.clock = clock

		return nil
	}
}

// WithHTTPClient replaces the HTTP client of the bibliographic lookup.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) error {
		if client == nil {
			return ErrNilOption
		}

		s.httpClient = client

		return nil
	}
}
