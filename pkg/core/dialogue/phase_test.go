package dialogue

import "testing"

func TestDecidePhases(t *testing.T) {
	const maxTurns, warmupTurns = 8, 2

	cases := []struct {
		name      string
		turnCount int
		farewell  bool
		phase     Phase
		shouldEnd bool
	}{
		{"first turn is warming", 1, false, PhaseWarming, false},
		{"last warmup turn", 2, false, PhaseWarming, false},
		{"mid conversation", 3, false, PhaseMidConversation, false},
		{"still mid before wrap-up", 6, false, PhaseMidConversation, false},
		{"penultimate turn wraps up", 7, false, PhaseWrappingUp, false},
		{"final turn ends", 8, false, PhaseFinal, true},
		{"beyond max still ends", 9, false, PhaseFinal, true},
		{"farewell overrides warming", 1, true, PhaseFinal, true},
		{"farewell overrides wrap-up", 7, true, PhaseFinal, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(tc.turnCount, maxTurns, warmupTurns, tc.farewell)
			if d.Phase != tc.phase {
				t.Fatalf("phase = %q, want %q", d.Phase, tc.phase)
			}
			if d.ShouldEnd != tc.shouldEnd {
				t.Fatalf("shouldEnd = %v, want %v", d.ShouldEnd, tc.shouldEnd)
			}
		})
	}
}

func TestDecideShortSession(t *testing.T) {
	// max_turns=6: turn 5 wraps up, turn 6 ends.
	d := Decide(5, 6, 2, false)
	if d.Phase != PhaseWrappingUp || d.ShouldEnd {
		t.Fatalf("turn 5/6: got %q shouldEnd=%v", d.Phase, d.ShouldEnd)
	}
	d = Decide(6, 6, 2, false)
	if d.Phase != PhaseFinal || !d.ShouldEnd {
		t.Fatalf("turn 6/6: got %q shouldEnd=%v", d.Phase, d.ShouldEnd)
	}
}

func TestFarewellDetector(t *testing.T) {
	det := NewFarewellDetector(nil)

	positives := []string{
		"bye",
		"ok bye bye!",
		"Goodbye friend",
		"अब अलविदा",
		"टाटा",
		"chalo TATA",
	}
	for _, s := range positives {
		if !det.Detect(s) {
			t.Fatalf("Detect(%q) = false, want true", s)
		}
	}

	negatives := []string{
		"मुझे आम पसंद है",
		"I played today",
		"",
	}
	for _, s := range negatives {
		if det.Detect(s) {
			t.Fatalf("Detect(%q) = true, want false", s)
		}
	}
}

func TestFarewellDetectorCustomPhrases(t *testing.T) {
	det := NewFarewellDetector([]string{"see you"})
	if !det.Detect("ok SEE YOU later") {
		t.Fatalf("custom phrase not detected")
	}
	if det.Detect("bye") {
		t.Fatalf("default phrases should not apply when custom phrases are set")
	}
}
