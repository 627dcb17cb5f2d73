// Package dispatch delivers campaign content.
//
// Three adapters share one HTTP relay client:
//   - EmailAdapter posts to the email relay.
//   - ConversationAdapter stores a coach message in a direct conversation and
//     announces it on the broadcast relay.
//   - CommunityAdapter does the same for the community group session.
//
// Every Send returns a domain.Outcome; transport and store failures become
// failed outcomes, never errors or panics. Sends are not idempotent: repeat
// protection belongs to the occurrence gate upstream.
package dispatch
