package errors

import (
	"context"
	stderrs "errors"
	"net"
)

// Class is the coarse bucket a poll loop uses to decide whether to keep running
// Anything not recognised lands in ClassFatal
type Class uint8

const (
	// ClassNone is returned for a nil error
	ClassNone Class = iota

	// ClassTransient covers upstream outages, rejected upstream requests, rate limiting and timeouts
	ClassTransient

	// ClassMalformedCheckpoint covers stored watermarks that fail to parse
	ClassMalformedCheckpoint

	// ClassMissingIdentifier covers parent records that cannot be expanded
	ClassMissingIdentifier

	// ClassFatal is the catch all
	ClassFatal
)

// String names the class for logs and status payloads
func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassTransient:
		return "transient"
	case ClassMalformedCheckpoint:
		return "malformed_checkpoint"
	case ClassMissingIdentifier:
		return "missing_identifier"
	default:
		return "fatal"
	}
}

// Classify buckets err into a Class
// upstream HTTP failures are transient whatever their status; other coded errors
// go by code; otherwise deadlines and network timeouts count as transient
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	if e, ok := As(err); ok {
		if e.upstream {
			return ClassTransient
		}
		switch e.code {
		case ErrorCodeUnavailable, ErrorCodeTooManyRequests:
			return ClassTransient
		case ErrorCodeMalformedCheckpoint:
			return ClassMalformedCheckpoint
		case ErrorCodeMissingIdentifier:
			return ClassMissingIdentifier
		case ErrorCodeDB:
			if IsRetryable(err) {
				return ClassTransient
			}
			return ClassFatal
		}
	}
	if stderrs.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	var ne net.Error
	if stderrs.As(err, &ne) && ne.Timeout() {
		return ClassTransient
	}
	if IsRetryable(err) {
		return ClassTransient
	}
	return ClassFatal
}

// IsTransient reports whether err is worth retrying on the next cycle
func IsTransient(err error) bool { return Classify(err) == ClassTransient }
