package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Event errors
var (
	// ErrEventNotFound is returned when no event matches the given criteria.
	ErrEventNotFound = errors.New("event not found")

	// ErrTradingClosed is returned when a trade is attempted on an event that
	// is not in StatusLive.
	ErrTradingClosed = errors.New("event is not open for trading")

	// ErrAlreadyResolved is returned when trying to resolve an already-resolved
	// event. A duplicate resolution request is a no-op: settlement never re-runs.
	ErrAlreadyResolved = errors.New("event is already resolved")

	// ErrInvalidTransition is returned for any lifecycle transition other than
	// upcoming→live, upcoming→resolved or live→resolved.
	ErrInvalidTransition = errors.New("invalid event status transition")

	// ErrInvalidMarketState is returned when a quoted price is ≤0 or ≥1.
	// This signals a corrupted market and blocks the trade.
	ErrInvalidMarketState = errors.New("market price is degenerate")

	// ErrEventResolved is returned when an event can no longer be deleted.
	ErrEventResolved = errors.New("resolved events cannot be deleted")
)

// Trade errors
var (
	// ErrInvalidSelection is returned when the selection is not yes or no.
	ErrInvalidSelection = errors.New("invalid selection: must be 'yes' or 'no'")

	// ErrInvalidAmount is returned when the stake is zero or negative.
	ErrInvalidAmount = errors.New("trade amount must be positive")

	// ErrInvalidOutcome is returned when a resolution outcome is not yes or no.
	ErrInvalidOutcome = errors.New("winning outcome must be 'yes' or 'no'")

	// ErrTradeNotFound is returned when no trade matches the given criteria.
	ErrTradeNotFound = errors.New("trade not found")
)

// User / wallet errors
var (
	// ErrUserNotFound is returned when no user matches the given criteria.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned on registration when the email already exists.
	ErrEmailTaken = errors.New("email address is already registered")

	// ErrUsernameTaken is returned on registration when the username already exists.
	ErrUsernameTaken = errors.New("username is already taken")

	// ErrInvalidCredentials is returned when login credentials are wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserInactive is returned when a suspended user attempts an action.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrInsufficientBalance is returned when a user's balance is too low to
	// cover a stake. Stakes are escrowed at trade time.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrWalletNotFound is returned when no wallet exists for the requested user.
	ErrWalletNotFound = errors.New("wallet not found")
)

// Auth errors
var (
	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the authenticated user lacks the required role.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrTokenExpired is returned when a JWT or refresh token has passed its TTL.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or its signature
	// does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrEventNotFound,
	ErrTradeNotFound,
	ErrUserNotFound,
	ErrWalletNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values directly
// when you need to translate domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict (e.g.
// duplicate registration, double-resolution, trading on a closed market).
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrEmailTaken,
		ErrUsernameTaken,
		ErrAlreadyResolved,
		ErrInvalidTransition,
		ErrTradingClosed,
		ErrEventResolved,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true for synchronous input-validation failures that
// mutate no state and are surfaced to the caller verbatim.
func IsValidation(err error) bool {
	validationErrors := []error{
		ErrInvalidSelection,
		ErrInvalidAmount,
		ErrInvalidOutcome,
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	authErrors := []error{
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrInvalidCredentials,
	}
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
