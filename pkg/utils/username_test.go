package utils

import "testing"

func TestValidateUsername(t *testing.T) {
	valid := []string{"alex", "Alex_99", "a1b", "journaler_2026", "  padded  "}
	for _, u := range valid {
		if err := ValidateUsername(u); err != nil {
			t.Errorf("ValidateUsername(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{
		"",
		"ab",
		"thisusernameiswaytoolong",
		"has space",
		"emoji🙂",
		"dot.name",
		"_leading",
	}
	for _, u := range invalid {
		if err := ValidateUsername(u); err == nil {
			t.Errorf("ValidateUsername(%q) = nil, want error", u)
		}
	}
}

func TestValidateUsernameErrorMessage(t *testing.T) {
	err := ValidateUsername("ab")
	if err == nil {
		t.Fatal("expected error")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if ve.Field != "username" {
		t.Errorf("Field = %q", ve.Field)
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got := NormalizeUsername("  Alex_99 "); got != "alex_99" {
		t.Errorf("NormalizeUsername = %q", got)
	}
}
