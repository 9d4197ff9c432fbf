package poll

import (
	"strings"
	"time"
)

// Choice is a ballot value. The numeric values match the chat tokens.
type Choice int

const (
	No  Choice = 0
	Yes Choice = 1
)

func (c Choice) String() string {
	switch c {
	case No:
		return "NO"
	case Yes:
		return "YES"
	default:
		return "INVALID"
	}
}

// Valid reports whether c is one of the two ballot values.
func (c Choice) Valid() bool { return c == No || c == Yes }

// ParseChoice accepts exactly "0" or "1" after trimming surrounding whitespace.
func ParseChoice(s string) (Choice, bool) {
	switch strings.TrimSpace(s) {
	case "0":
		return No, true
	case "1":
		return Yes, true
	default:
		return 0, false
	}
}

// Tally counts ballots per choice.
type Tally struct {
	No  int `json:"no"`
	Yes int `json:"yes"`
}

func (t Tally) Total() int { return t.No + t.Yes }

func (t *Tally) add(c Choice) {
	if c == Yes {
		t.Yes++
	} else {
		t.No++
	}
}

// Outcome is the decided result of a closed poll.
type Outcome int

const (
	Tie Outcome = iota
	OutcomeYes
	OutcomeNo
)

func (o Outcome) String() string {
	switch o {
	case OutcomeYes:
		return "YES"
	case OutcomeNo:
		return "NO"
	default:
		return "TIE"
	}
}

// Decide applies the winner rule: the strictly larger side wins, equal counts tie.
func Decide(t Tally) Outcome {
	switch {
	case t.Yes > t.No:
		return OutcomeYes
	case t.No > t.Yes:
		return OutcomeNo
	default:
		return Tie
	}
}

// Snapshot is a read-only copy of a poll's state.
type Snapshot struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Tally     Tally     `json:"tally"`
	Voters    int       `json:"voters"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Result is produced once per poll when it expires.
type Result struct {
	Snapshot
	Outcome Outcome   `json:"-"`
	EndedAt time.Time `json:"ended_at"`
}

// poll is the mutable state of one ACTIVE period. Only Engine touches it, under Engine.mu.
type poll struct {
	id        string
	question  string
	tally     Tally
	voters    map[string]struct{}
	startedAt time.Time
	expiresAt time.Time
}

func (p *poll) snapshot() Snapshot {
	return Snapshot{
		ID:        p.id,
		Question:  p.question,
		Tally:     p.tally,
		Voters:    len(p.voters),
		StartedAt: p.startedAt,
		ExpiresAt: p.expiresAt,
	}
}
