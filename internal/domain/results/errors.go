// Package results defines the error taxonomy and read shapes shared by the
// results pipeline and its callers.
package results

import "errors"

// Sentinel kinds for pipeline errors. Callers match with errors.Is.
var (
	// ErrNoFinishers means the upstream feed has no finishers yet. This is
	// an expected, transient condition shown as a waiting message.
	ErrNoFinishers = errors.New("no finishers yet")

	// ErrNoLiveData means no records survived filtering. Same treatment as
	// ErrNoFinishers.
	ErrNoLiveData = errors.New("no live data found")

	// ErrUpstreamTransport covers network, timeout and HTTP-status failures
	// reaching the feed. Retryable on the next request.
	ErrUpstreamTransport = errors.New("upstream transport failure")

	// ErrUpstreamParse covers malformed feed payloads. Retryable.
	ErrUpstreamParse = errors.New("upstream parse failure")

	// ErrNoAdjustments means no grading-factor version could be resolved
	// for a race's distance. Fatal for that race's request; indicates a
	// metadata gap.
	ErrNoAdjustments = errors.New("no adjustments version available")

	// ErrUnknownRace means the race key is not in the catalog.
	ErrUnknownRace = errors.New("race not found")

	// ErrGenderRequired means the race's slot policy is per gender and the
	// caller supplied none.
	ErrGenderRequired = errors.New("gender required for this race")

	// ErrNoEndpoint means the catalog entry carries no live feed endpoint
	// for the requested gender.
	ErrNoEndpoint = errors.New("live results not available")
)
