// Package poll runs the bot's single yes/no chat poll.
//
// An Engine owns at most one active poll at a time. StartPoll opens it and
// schedules a one-shot expiry on the injected clock; CastVote tallies ballots
// while it is open. When the timer fires the engine freezes the tally,
// decides the winner, announces it in chat and appends a result record to the
// event log. A vote processed after the expiry has run is rejected with
// ErrNoActivePoll even if the chat message arrived earlier.
package poll
