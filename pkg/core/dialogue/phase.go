// Package dialogue decides the conversation phase and termination for each
// turn. The turn count is the sole driver of phase transitions; a detected
// farewell phrase forces termination regardless of the count.
package dialogue

// Phase is the state-machine stage governing how the responder should shape
// its reply.
type Phase string

const (
	PhaseWarming         Phase = "warming"
	PhaseMidConversation Phase = "mid_conversation"
	PhaseWrappingUp      Phase = "wrapping_up"
	PhaseFinal           Phase = "final"
	PhaseEnded           Phase = "ended"
)

// Decision is the outcome of one state-machine step.
type Decision struct {
	Phase Phase
	// ShouldEnd means this turn's reply must be a closing line with no new
	// question, and the session accepts no further turns.
	ShouldEnd bool
}

// Decide evaluates the state machine for the turn identified by turnCount
// (the count after this turn's increment). warmupTurns is how many opening
// turns stay in the warming phase, normally 2.
func Decide(turnCount, maxTurns, warmupTurns int, farewellDetected bool) Decision {
	if farewellDetected || turnCount >= maxTurns {
		return Decision{Phase: PhaseFinal, ShouldEnd: true}
	}
	if turnCount == maxTurns-1 {
		return Decision{Phase: PhaseWrappingUp}
	}
	if turnCount <= warmupTurns {
		return Decision{Phase: PhaseWarming}
	}
	return Decision{Phase: PhaseMidConversation}
}
