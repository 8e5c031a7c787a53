package domain

import "errors"

// Sentinel errors for client and session operations
var (
	// ErrTransport indicates the network request itself failed (no
	// connectivity, timeout, connection refused).
	ErrTransport = errors.New("network request failed")

	// ErrDecode indicates the response arrived but did not match the
	// expected shape.
	ErrDecode = errors.New("malformed response")

	// ErrNotFound indicates the requested id does not exist upstream.
	ErrNotFound = errors.New("item not found")

	// ErrScrape indicates an expected HTML marker was missing. This signals
	// upstream markup drift, not a transient condition.
	ErrScrape = errors.New("expected HTML marker not found")

	// ErrInvalidCredentials indicates the login was rejected.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidResponse indicates the auth endpoint answered with
	// something other than the expected redirect shape.
	ErrInvalidResponse = errors.New("unexpected response from server")

	// ErrAccountExists indicates account creation failed, most likely
	// because the username is taken.
	ErrAccountExists = errors.New("account creation failed, username may be taken")

	// ErrResetFailed indicates the password reset was rejected for an
	// unknown user.
	ErrResetFailed = errors.New("unknown user")

	// ErrNoCredentials indicates the credential store holds no session.
	ErrNoCredentials = errors.New("no stored credentials")
)
