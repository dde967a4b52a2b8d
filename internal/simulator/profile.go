package simulator

import "time"

type Outcome string

const (
	OutcomeAnswered  Outcome = "answered"
	OutcomeBusy      Outcome = "busy"
	OutcomeNoAnswer  Outcome = "no_answer"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// OutcomeWeights is a percentage distribution over call outcomes.
// The weights must sum to 100.
type OutcomeWeights struct {
	Answered  int
	Busy      int
	NoAnswer  int
	Failed    int
	Cancelled int
}

// Profile is one named timing/outcome variant of the simulation. Batch and
// single dispatch run the same simulator with different profiles; nothing
// in the state machine branches on the mode.
type Profile struct {
	Name    string
	Weights OutcomeWeights

	RingDelay    time.Duration
	AnswerDelay  time.Duration
	ResolveDelay time.Duration
	HangupDelay  time.Duration

	TalkSecondsMin int
	TalkSecondsMax int

	BusyMessage      string
	NoAnswerMessage  string
	CancelledMessage string
}

// Draw samples one outcome from the profile's distribution using a roll
// in [0, 100).
func (profile Profile) Draw(roller Roller) Outcome {
	roll := roller.Intn(100)

	thresholds := []struct {
		weight  int
		outcome Outcome
	}{
		{profile.Weights.Answered, OutcomeAnswered},
		{profile.Weights.Busy, OutcomeBusy},
		{profile.Weights.NoAnswer, OutcomeNoAnswer},
		{profile.Weights.Failed, OutcomeFailed},
		{profile.Weights.Cancelled, OutcomeCancelled},
	}

	cumulative := 0
	for _, threshold := range thresholds {
		cumulative += threshold.weight
		if roll < cumulative {
			return threshold.outcome
		}
	}

	return OutcomeFailed
}

// TalkSeconds draws a uniform talk duration from the profile's range.
func (profile Profile) TalkSeconds(roller Roller) int {
	if profile.TalkSecondsMax <= profile.TalkSecondsMin {
		return profile.TalkSecondsMin
	}

	return profile.TalkSecondsMin + roller.Intn(profile.TalkSecondsMax-profile.TalkSecondsMin+1)
}

// BatchProfile is the sweep variant: slightly lower answer rate and
// shorter conversations.
func BatchProfile() Profile {
	return Profile{
		Name: "batch",
		Weights: OutcomeWeights{
			Answered: 60,
			Busy:     15,
			NoAnswer: 15,
			Failed:   10,
		},
		RingDelay:        500 * time.Millisecond,
		AnswerDelay:      time.Second,
		ResolveDelay:     500 * time.Millisecond,
		HangupDelay:      100 * time.Millisecond,
		TalkSecondsMin:   5,
		TalkSecondsMax:   30,
		BusyMessage:      "Line busy",
		NoAnswerMessage:  "No answer after 30 seconds",
		CancelledMessage: "Call cancelled by system",
	}
}

// SingleProfile is the manual-dial variant: better odds, longer talks,
// and a small chance of cancellation.
func SingleProfile() Profile {
	return Profile{
		Name: "single",
		Weights: OutcomeWeights{
			Answered:  65,
			Busy:      13,
			NoAnswer:  12,
			Failed:    7,
			Cancelled: 3,
		},
		RingDelay:        500 * time.Millisecond,
		AnswerDelay:      1500 * time.Millisecond,
		ResolveDelay:     time.Second,
		HangupDelay:      200 * time.Millisecond,
		TalkSecondsMin:   10,
		TalkSecondsMax:   60,
		BusyMessage:      "Subscriber busy",
		NoAnswerMessage:  "No answer within timeout period",
		CancelledMessage: "Call cancelled by system",
	}
}

// InstantProfile collapses all delays to zero; tests and benchmarks build
// on it so runs are deterministic in time.
func InstantProfile(base Profile) Profile {
	base.RingDelay = 0
	base.AnswerDelay = 0
	base.ResolveDelay = 0
	base.HangupDelay = 0

	return base
}
