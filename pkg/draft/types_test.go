package draft

import "testing"

func TestIncrementVersionOdometer(t *testing.T) {
	tests := []struct {
		current string
		want    string
	}{
		{"1.0", "1.1"},
		{"1.1", "1.2"},
		{"1.8", "1.9"},
		{"1.9", "2.0"},
		{"2.9", "3.0"},
		{"9.9", "10.0"},
		{"10.0", "10.1"},
	}
	for _, tt := range tests {
		got, err := IncrementVersion(tt.current)
		if err != nil {
			t.Errorf("IncrementVersion(%s) returned error: %v", tt.current, err)
			continue
		}
		if got != tt.want {
			t.Errorf("IncrementVersion(%s) = %s, want %s", tt.current, got, tt.want)
		}
	}
}

func TestIncrementVersionMalformed(t *testing.T) {
	for _, bad := range []string{"", "1", "1.x", "x.0", "1.0.0"} {
		if _, err := IncrementVersion(bad); err == nil {
			t.Errorf("Expected error for malformed version %q", bad)
		}
	}
}

func TestVersionNumbersStrictlyIncrease(t *testing.T) {
	current := "1.0"
	seen := map[string]bool{current: true}
	for i := 0; i < 50; i++ {
		next, err := IncrementVersion(current)
		if err != nil {
			t.Fatalf("IncrementVersion(%s): %v", current, err)
		}
		if seen[next] {
			t.Fatalf("Version %s repeated", next)
		}
		seen[next] = true
		current = next
	}
	if current != "6.0" {
		t.Errorf("Expected 50 increments from 1.0 to end at 6.0, got %s", current)
	}
}

func TestSuggestionResolved(t *testing.T) {
	s := Suggestion{Status: SuggestionPending}
	if s.Resolved() {
		t.Error("Pending suggestion should not be resolved")
	}
	s.Status = SuggestionAccepted
	if !s.Resolved() {
		t.Error("Accepted suggestion should be resolved")
	}
	s.Status = SuggestionDeclined
	if !s.Resolved() {
		t.Error("Declined suggestion should be resolved")
	}
}
