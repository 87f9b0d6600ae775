// Package app holds the session store, route guard and the account flows.
package app

import "errors"

var (
	// ErrEmptyToken indicates an attempt to store an empty bearer token.
	ErrEmptyToken = errors.New("token must not be empty")
	// ErrTokenRequired indicates SetUser was called before a token was set.
	ErrTokenRequired = errors.New("token must be set before the user")
	// ErrStaleSession indicates the session was logged out after the handle was opened.
	ErrStaleSession = errors.New("session changed since the request started")
	// ErrDuplicateSubmission indicates the same action is already in flight for the client.
	ErrDuplicateSubmission = errors.New("request already in progress")
	// ErrProfileFetch indicates the profile could not be loaded after a successful login.
	ErrProfileFetch = errors.New("failed to get user information")
	// ErrNotAuthenticated indicates an account call without an authenticated session.
	ErrNotAuthenticated = errors.New("not authenticated")
)
