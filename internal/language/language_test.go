package language

import "testing"

func TestHint(t *testing.T) {
	tests := []struct {
		in, fallback, want string
	}{
		{"pt-BR", "en", "pt"},
		{"en", "pt", "en"},
		{"Portuguese", "en", "pt"},
		{"", "pt", "pt"},
		{"not a language!", "pt", "pt"},
	}
	for _, tt := range tests {
		if got := Hint(tt.in, tt.fallback); got != tt.want {
			t.Errorf("Hint(%q, %q) = %q, want %q", tt.in, tt.fallback, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("pt"); got != "Portuguese" {
		t.Fatalf("DisplayName(pt) = %q", got)
	}
	if got := DisplayName(""); got != "Unknown" {
		t.Fatalf("DisplayName(\"\") = %q", got)
	}
}
