package service

import "errors"

// Failure sentinels surfaced to callers. Access-denied and rate-limit
// failures are distinct so clients can tell authorization problems apart
// from transient resource exhaustion.
var (
	ErrAccessDenied     = errors.New("access denied: document owned by another connection")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrParseTimeout     = errors.New("parse timed out")
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
	ErrUnknownDocument  = errors.New("document not open")
	ErrStaleVersion     = errors.New("stale document version")
)
