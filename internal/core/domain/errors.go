package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid (missing file, malformed question)
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates a session or share token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates a token is malformed, tampered or revoked
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrIngestionFailed indicates parse, embed or index-write failure during upload
	ErrIngestionFailed = errors.New("ingestion failed")

	// ErrRetrievalFailed indicates embed or search failure while answering
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrUpstreamProvider indicates an embedding or language model provider error
	ErrUpstreamProvider = errors.New("upstream provider failure")

	// ErrDimensionMismatch indicates a vector does not match the index dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnreadableDocument indicates the uploaded file could not be parsed
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrLockHeld indicates another worker holds the tenant ingestion lock
	ErrLockHeld = errors.New("lock held by another worker")

	// ErrSuperseded indicates a newer upload replaced the one being processed
	ErrSuperseded = errors.New("upload superseded")

	// ErrInvalidProvider indicates an unknown AI provider or index backend was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates a required capability is not configured or reachable
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrRateLimited indicates the caller exceeded its request budget
	ErrRateLimited = errors.New("rate limited")
)
