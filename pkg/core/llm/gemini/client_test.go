package gemini

import "testing"

func TestStripFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"score": 1}`, `{"score": 1}`},
		{"```json\n{\"score\": 1}\n```", `{"score": 1}`},
		{"```\n{\"score\": 1}\n```", `{"score": 1}`},
		{"  {\"score\": 1}  ", `{"score": 1}`},
	}
	for _, tc := range cases {
		if got := stripFences(tc.in); got != tc.want {
			t.Fatalf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(t.Context(), "", ""); err == nil {
		t.Fatalf("empty api key must be rejected")
	}
}
