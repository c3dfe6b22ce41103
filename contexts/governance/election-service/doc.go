// Package electionservice implements the association election lifecycle inside
// the governance context.
//
// The module owns election status transitions, position definitions, candidacy
// submission and moderation, ballot casting and result tallying. Uniqueness of
// candidacies and votes per (election, position, member) is enforced by the
// repository inside a single transaction, backed by unique indexes in storage.
// Business rules live in application/domain layers; infrastructure concerns sit
// behind ports and adapters.
package electionservice
