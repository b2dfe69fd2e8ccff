package env

import "fmt"

// Outcome says how a step's reward was produced.
type Outcome uint8

const (
	OutcomeContinue    Outcome = iota // token appended, episode continues
	OutcomeScored                     // scorer returned a number
	OutcomeUndefined                  // scorer returned NaN, coerced to 0
	OutcomeOutOfRange                 // scorer lacked data, reward 0
	OutcomeScoreFailed                // scorer errored, reward 0
	OutcomePenalty                    // length ceiling on an incomplete tree
	OutcomeIncomplete                 // SEP on an incomplete tree, reward 0
)

var outcomeNames = [...]string{
	OutcomeContinue:    "continue",
	OutcomeScored:      "scored",
	OutcomeUndefined:   "undefined",
	OutcomeOutOfRange:  "out_of_range",
	OutcomeScoreFailed: "score_failed",
	OutcomePenalty:     "penalty",
	OutcomeIncomplete:  "incomplete",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// Outcomes lists every terminal outcome.
var Outcomes = []Outcome{
	OutcomeScored, OutcomeUndefined, OutcomeOutOfRange,
	OutcomeScoreFailed, OutcomePenalty, OutcomeIncomplete,
}

// ParseOutcome is the inverse of String.
func ParseOutcome(s string) (Outcome, error) {
	for i, name := range outcomeNames {
		if name == s {
			return Outcome(i), nil
		}
	}
	return 0, fmt.Errorf("env: unknown outcome %q", s)
}
