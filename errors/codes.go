package errors

// ErrorCode is the machine-readable error kind returned to API callers.
type ErrorCode int32

const (
	ErrorCode_UNKNOWN ErrorCode = iota
	ErrorCode_INVALID_ARGUMENT
	ErrorCode_UNAUTHENTICATED
	ErrorCode_PERMISSION_DENIED
	ErrorCode_NOT_FOUND
	ErrorCode_ALREADY_EXISTS
	ErrorCode_FAILED_PRECONDITION
	ErrorCode_UNAVAILABLE
	ErrorCode_INTERNAL

	// Authentication
	ErrorCode_AUTH_INVALID_TOKEN
	ErrorCode_AUTH_TOKEN_EXPIRED
	ErrorCode_AUTH_INVALID_REFRESH_TOKEN
	ErrorCode_AUTH_OAUTH_FAILED
	ErrorCode_AUTH_OAUTH_STATE_MISMATCH

	// Integrations
	ErrorCode_INTEGRATION_GOOGLE_FAILED
	ErrorCode_INTEGRATION_NOT_CONNECTED
	ErrorCode_INTEGRATION_STORAGE_FAILED
	ErrorCode_INTEGRATION_EMAIL_FAILED

	// Notes ingestion
	ErrorCode_NOTES_SWEEP_IN_PROGRESS
	ErrorCode_NOTES_SWEEP_FAILED

	// Database
	ErrorCode_DB_QUERY_FAILED
	ErrorCode_DB_TRANSACTION_FAILED
)

var codeKinds = map[ErrorCode]string{
	ErrorCode_UNKNOWN:                    "unknown",
	ErrorCode_INVALID_ARGUMENT:           "invalid-argument",
	ErrorCode_UNAUTHENTICATED:            "unauthenticated",
	ErrorCode_PERMISSION_DENIED:          "permission-denied",
	ErrorCode_NOT_FOUND:                  "not-found",
	ErrorCode_ALREADY_EXISTS:             "already-exists",
	ErrorCode_FAILED_PRECONDITION:        "failed-precondition",
	ErrorCode_UNAVAILABLE:                "unavailable",
	ErrorCode_INTERNAL:                   "internal",
	ErrorCode_AUTH_INVALID_TOKEN:         "unauthenticated",
	ErrorCode_AUTH_TOKEN_EXPIRED:         "unauthenticated",
	ErrorCode_AUTH_INVALID_REFRESH_TOKEN: "unauthenticated",
	ErrorCode_AUTH_OAUTH_FAILED:          "unauthenticated",
	ErrorCode_AUTH_OAUTH_STATE_MISMATCH:  "invalid-argument",
	ErrorCode_INTEGRATION_GOOGLE_FAILED:  "unavailable",
	ErrorCode_INTEGRATION_NOT_CONNECTED:  "failed-precondition",
	ErrorCode_INTEGRATION_STORAGE_FAILED: "internal",
	ErrorCode_INTEGRATION_EMAIL_FAILED:   "internal",
	ErrorCode_NOTES_SWEEP_IN_PROGRESS:    "failed-precondition",
	ErrorCode_NOTES_SWEEP_FAILED:         "internal",
	ErrorCode_DB_QUERY_FAILED:            "internal",
	ErrorCode_DB_TRANSACTION_FAILED:      "internal",
}

// String returns the short kind of the code, e.g. "invalid-argument".
func (c ErrorCode) String() string {
	if kind, ok := codeKinds[c]; ok {
		return kind
	}
	return "unknown"
}

// MarshalText renders the code as its kind in JSON bodies.
func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
