package wagon

import "fmt"

// The wagon translates every backend failure into one of five error kinds at
// its boundary: ConfigurationError, AuthError, ConnectionError,
// NotFoundError, TransferError. No retries happen here; a single failure is
// surfaced to the caller as-is.

// ConfigurationError means the repository URL could not be understood.
type ConfigurationError struct {
	URL    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid repository URL %q: %s", e.URL, e.Reason)
}

// AuthError means the credentials are missing or unusable. Raised before any
// network call is attempted.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

// ConnectionError means the adapter could not reach a usable connected
// state: the bucket does not exist, the client could not be built, or a
// transfer was attempted while disconnected.
type ConnectionError struct {
	Bucket string
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	msg := "connection failed"
	if e.Bucket != "" {
		msg += " for bucket " + e.Bucket
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NotFoundError means the remote key for a resource does not exist.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string {
	return "resource not found: " + e.Resource
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// TransferError covers every other transport-level failure, including local
// I/O errors while staging downloaded files.
type TransferError struct {
	Op       string
	Resource string
	Err      error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Resource, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
