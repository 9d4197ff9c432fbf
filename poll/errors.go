package poll

import "errors"

var (
	// ErrPollActive is returned by StartPoll while another poll is still open.
	ErrPollActive = errors.New("poll already active")
	// ErrNoActivePoll is returned by CastVote when no poll is open.
	ErrNoActivePoll = errors.New("no active poll")
	// ErrAlreadyVoted is returned when a voter casts a second ballot in the same poll.
	ErrAlreadyVoted = errors.New("already voted")
	// ErrInvalidChoice rejects anything other than No or Yes.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrEmptyQuestion rejects a poll with no question text.
	ErrEmptyQuestion = errors.New("empty question")
)
