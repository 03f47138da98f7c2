package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple title",
			input:    "Morning Flow",
			expected: "morning-flow",
		},
		{
			name:     "with special characters",
			input:    "Breathe, Stretch, Relax!",
			expected: "breathe-stretch-relax",
		},
		{
			name:     "with accents",
			input:    "Meditación guiada",
			expected: "meditacion-guiada",
		},
		{
			name:     "with multiple spaces",
			input:    "Sun   Salutation",
			expected: "sun-salutation",
		},
		{
			name:     "with leading/trailing spaces",
			input:    "  Yin Yoga  ",
			expected: "yin-yoga",
		},
		{
			name:     "all special characters",
			input:    "!@#$%^&*()",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSlugify_Cyrillic(t *testing.T) {
	got := Slugify("Утренняя практика")
	if got == "" {
		t.Fatal("Slugify() returned empty slug for Cyrillic title")
	}
	if !IsValidSlug(got) {
		t.Errorf("Slugify() = %q, not a valid slug", got)
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yin-yoga", true},
		{"course-101", true},
		{"", false},
		{"-leading", false},
		{"trailing-", false},
		{"double--hyphen", false},
		{"Upper", false},
	}

	for _, tt := range tests {
		if got := IsValidSlug(tt.input); got != tt.want {
			t.Errorf("IsValidSlug(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
