package repository

import "github.com/m-mizutani/goerr/v2"

var (
	ErrNotFound     = goerr.New("not found")
	ErrInvalidInput = goerr.New("invalid input")

	// ErrEventExists is returned by CreateEvent when the delivery ID is
	// already recorded. The caller treats the delivery as a no-op.
	ErrEventExists = goerr.New("event already exists")

	// ErrNoClaimableEvent is returned by ClaimNextEvent when no pending or
	// retry-due event exists.
	ErrNoClaimableEvent = goerr.New("no claimable event")

	// ErrUnavailable wraps store connectivity failures. The dispatcher treats
	// it as transient and retries the whole event.
	ErrUnavailable = goerr.New("store unavailable")
)
