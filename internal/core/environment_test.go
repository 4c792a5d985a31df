package core

import "testing"

func TestParseEnvironment(t *testing.T) {
	cases := map[string]Environment{
		"production":  Production,
		"testing":     Testing,
		"development": Development,
		"":            Development,
		"staging":     Development,
	}
	for input, expected := range cases {
		if got := ParseEnvironment(input); got != expected {
			t.Fatalf("ParseEnvironment(%q) = %q, expected %q", input, got, expected)
		}
	}
	if !Production.IsProduction() || Development.IsProduction() {
		t.Fatalf("unexpected IsProduction results")
	}
}
