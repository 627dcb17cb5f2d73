// Package schedule decides when a campaign occurrence is due.
//
// A Normalizer turns a raw date string into a UTC instant. Strings without a
// zone annotation are wall-clock times in the configured home zone, resolved
// with that zone's daylight-saving rules for the given calendar date. A Gate
// compares the normalized instant with "now" and a SentSet of fulfilled
// occurrences, and returns whether the occurrence fires.
//
// Nothing in this package returns an error to the polling loop: malformed
// dates are logged and reported as "do not fire".
package schedule
