package userapi

import "errors"

var (
	// ErrTransport covers unreachable hosts, timeouts and an open breaker.
	ErrTransport = errors.New("user api transport failure")
	// ErrServer is a non-success status from the server.
	ErrServer   = errors.New("user api server failure")
	ErrParse    = errors.New("user api malformed response")
	ErrNotFound = errors.New("user not found")
)
