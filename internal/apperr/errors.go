// Package apperr defines the sentinel errors shared across Othala's
// pipeline. None of these abort a run: they are mapped to per-marker or
// per-note report entries by the orchestrator.
package apperr

import "errors"

var (
	// ErrNoResults means the provider answered but had nothing usable.
	ErrNoResults = errors.New("no results")

	// ErrMissingKey means the provider requires an API key that is not
	// configured.
	ErrMissingKey = errors.New("api key not configured")

	// ErrBackupFailed means the pre-write backup copy could not be
	// created; the note write is aborted and the note left untouched.
	ErrBackupFailed = errors.New("backup failed")
)
