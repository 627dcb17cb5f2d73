// Package domain holds the campaign, session and message records shared by the
// scheduler, the dispatch adapters and the store.
//
// String tags that cross the store or wire boundary (channel, session mode,
// call-to-action type, campaign status) are closed types: each has a Parse
// function that rejects unknown values instead of passing them through.
package domain
