package errors

import "net/http"

// ErrorCode is the machine readable part of an Error; values are on the wire so only append
type ErrorCode uint16

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodePanic
	ErrorCodeUnavailable
	ErrorCodeTooManyRequests
	ErrorCodeUnauthorized
	ErrorCodeInvalidArgument
	ErrorCodeValidation
	ErrorCodeJSON
	ErrorCodeNotFound
	ErrorCodeDB

	// ErrorCodeMalformedCheckpoint marks a stored watermark that cannot be parsed
	ErrorCodeMalformedCheckpoint

	// ErrorCodeMissingIdentifier marks a parent record without the id its expansion needs
	ErrorCodeMissingIdentifier
)

type codeInfo struct {
	name   string
	status int
}

var codeTable = [...]codeInfo{
	ErrorCodeUnknown:             {"unknown", http.StatusInternalServerError},
	ErrorCodePanic:               {"panic", http.StatusInternalServerError},
	ErrorCodeUnavailable:         {"unavailable", http.StatusServiceUnavailable},
	ErrorCodeTooManyRequests:     {"too_many_requests", http.StatusTooManyRequests},
	ErrorCodeUnauthorized:        {"unauthorized", http.StatusUnauthorized},
	ErrorCodeInvalidArgument:     {"invalid_argument", http.StatusUnprocessableEntity},
	ErrorCodeValidation:          {"validation", http.StatusBadRequest},
	ErrorCodeJSON:                {"json", http.StatusBadRequest},
	ErrorCodeNotFound:            {"not_found", http.StatusNotFound},
	ErrorCodeDB:                  {"db", http.StatusInternalServerError},
	ErrorCodeMalformedCheckpoint: {"malformed_checkpoint", http.StatusInternalServerError},
	ErrorCodeMissingIdentifier:   {"missing_identifier", http.StatusInternalServerError},
}

func (c ErrorCode) info() codeInfo {
	if int(c) < len(codeTable) {
		return codeTable[c]
	}
	return codeTable[ErrorCodeUnknown]
}

// String names the code for logs
func (c ErrorCode) String() string { return c.info().name }

// HTTPStatusCode is the status the status endpoint answers with for c
func HTTPStatusCode(c ErrorCode) int { return c.info().status }

// FromHTTPStatus maps an upstream failure status to a code; callers only ask on failure
func FromHTTPStatus(status int) ErrorCode {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorCodeTooManyRequests
	case status == http.StatusRequestTimeout, status >= 500:
		return ErrorCodeUnavailable
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrorCodeUnauthorized
	case status == http.StatusNotFound:
		return ErrorCodeNotFound
	case status >= 400:
		return ErrorCodeInvalidArgument
	default:
		return ErrorCodeUnknown
	}
}
