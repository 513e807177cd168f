package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"allrentr/models"
)

// Geolocation failures. Providers should wrap one of these so callers can
// tell them apart with errors.Is.
var (
	ErrPermissionDenied    = errors.New("geolocation: permission denied")
	ErrPositionUnavailable = errors.New("geolocation: position unavailable")
	ErrPositionTimeout     = errors.New("geolocation: timed out")
)

// DefaultGeolocationTimeout bounds how long AcquirePosition waits.
const DefaultGeolocationTimeout = 10 * time.Second

// PositionOptions mirrors the options a device location request takes.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// DefaultPositionOptions prefers high accuracy, waits 10s and accepts a fix
// up to a minute old.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{
		HighAccuracy: true,
		Timeout:      DefaultGeolocationTimeout,
		MaximumAge:   time.Minute,
	}
}

// PositionProvider obtains the user's current position.
type PositionProvider interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (models.Position, error)
}

// AcquirePosition asks provider for a position and gives up after
// opts.Timeout. A provider that ignores ctx is abandoned, not waited for.
func AcquirePosition(ctx context.Context, provider PositionProvider, opts PositionOptions) (models.Position, error) {
	if provider == nil {
		return models.Position{}, fmt.Errorf("%w: no location provider configured", ErrPositionUnavailable)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultGeolocationTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	type answer struct {
		pos models.Position
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		pos, err := provider.CurrentPosition(ctx, opts)
		ch <- answer{pos, err}
	}()

	select {
	case a := <-ch:
		if a.err != nil {
			if errors.Is(a.err, context.DeadlineExceeded) {
				return models.Position{}, fmt.Errorf("%w: %v", ErrPositionTimeout, a.err)
			}
			return models.Position{}, a.err
		}
		if !a.pos.Valid() {
			return models.Position{}, fmt.Errorf("%w: invalid coordinates (%v, %v)", ErrPositionUnavailable, a.pos.Lat, a.pos.Lng)
		}
		return a.pos, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.Position{}, fmt.Errorf("%w after %v", ErrPositionTimeout, opts.Timeout)
		}
		return models.Position{}, ctx.Err()
	}
}

// LocationNotice builds the user-facing notice for a geolocation failure.
func LocationNotice(err error) *models.Notice {
	msg := "Please enable location permissions in your browser."
	switch {
	case errors.Is(err, ErrPermissionDenied):
		msg = "Location permission was denied. Please enable location permissions in your browser."
	case errors.Is(err, ErrPositionTimeout):
		msg = "Getting your location took too long. Please try again."
	case errors.Is(err, ErrPositionUnavailable):
		msg = "Your location is currently unavailable."
	}
	return &models.Notice{
		Kind:        models.NoticeLocationUnavailable,
		Title:       "Unable to get location",
		Message:     msg,
		Destructive: true,
	}
}
