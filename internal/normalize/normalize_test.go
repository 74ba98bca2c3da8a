package normalize

import "testing"

func TestTagName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"aaa", "aaa"},
		{"AAA", "aaa"},
		{"  Bbb  ", "bbb"},
		{"Slow Burn", "slow_burn"},
		{"multi   word\ttag", "multi_word_tag"},
		{"Artist:Foo", "artist:foo"},
		{"hhh*", "hhh*"},
		{"ＡＢＣ", "abc"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := TagName(tt.input); got != tt.expected {
				t.Errorf("TagName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestKeyword(t *testing.T) {
	if got := Keyword("  CREATE   Alias "); got != "create alias" {
		t.Errorf("Keyword() = %q", got)
	}
}

func TestIsValidTagName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"aaa", true},
		{"artist:bbb", true},
		{"000", true},
		{"", false},
		{"-aaa", false},
		{"~aaa", false},
		{"a b", false},
		{"a\x00b", false},
	}

	for _, tt := range tests {
		if got := IsValidTagName(tt.name); got != tt.valid {
			t.Errorf("IsValidTagName(%q) = %v, want %v", tt.name, got, tt.valid)
		}
	}
}
