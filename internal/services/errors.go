package services

import "errors"

// The pipeline error taxonomy. Every internal failure is wrapped into one of
// these sentinels before it leaves the services package; handlers map them to
// HTTP statuses and never leak internal detail to clients.
var (
	// ErrInsufficientCredits: no active subscription and the relevant counter
	// is exhausted. Terminal; the user must upgrade.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrAssetNotFound: a storage path could not be derived from a display
	// URL, or the blob read failed.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrInvalidURL: a user-supplied URL failed scheme or SSRF validation.
	ErrInvalidURL = errors.New("invalid url")

	// ErrNoTextResponse: the model response contained no text-typed part.
	ErrNoTextResponse = errors.New("model returned no text response")

	// ErrMalformedOutput: the model's text could not be parsed as JSON, or the
	// parsed document failed the operation's shape check.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrUpstreamGeneration: both the original model call and its single retry
	// failed. Terminal; maps to 502.
	ErrUpstreamGeneration = errors.New("upstream generation failed")

	// ErrPersistence: the record insert failed. No debit happens after this.
	ErrPersistence = errors.New("failed to persist result")

	// ErrRecordNotFound: a dependent operation referenced a record that does
	// not exist or belongs to another user.
	ErrRecordNotFound = errors.New("record not found")

	// ErrAlreadyImproved: the analysis already carries an improvement result.
	// Each analysis is improved at most once; a repeat would overwrite the
	// prior result and burn another credit.
	ErrAlreadyImproved = errors.New("analysis already improved")
)
