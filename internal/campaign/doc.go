// Package campaign drives scheduled campaigns: on every tick it asks the
// occurrence gate which scheduled dates are due, dispatches them through the
// channel adapters and records the outcome.
package campaign
