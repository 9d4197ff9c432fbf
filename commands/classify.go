package commands

import (
	"strings"

	"github.com/onnwee/stream-bot/poll"
)

// Kind is what an inbound chat line turned out to be.
type Kind int

const (
	KindIgnored Kind = iota
	KindBallot
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindBallot:
		return "ballot"
	case KindCommand:
		return "command"
	default:
		return "ignored"
	}
}

// Classification is the outcome of Classify.
type Classification struct {
	Kind    Kind
	Choice  poll.Choice // KindBallot
	Command Command     // KindCommand
	Args    []string    // KindCommand
}

// Classify decides what text is. Ballots are only recognized while a poll is
// active and are checked before commands.
func (r *Registry) Classify(text string, pollActive bool) Classification {
	if pollActive {
		if c, ok := poll.ParseChoice(text); ok {
			return Classification{Kind: KindBallot, Choice: c}
		}
	}
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "!") {
		return Classification{Kind: KindIgnored}
	}
	cmd, ok := r.Lookup(fields[0])
	if !ok {
		return Classification{Kind: KindIgnored}
	}
	return Classification{Kind: KindCommand, Command: cmd, Args: fields[1:]}
}
