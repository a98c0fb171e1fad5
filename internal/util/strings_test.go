package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralize(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, "metrics"},
		{1, "metric"},
		{2, "metrics"},
		{-1, "metrics"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Pluralize(tt.count, "metric", "metrics"), "count %d", tt.count)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "cpu", 3},
		{"cpu", "", 3},
		{"cpu", "cpu", 0},
		{"ncpu", "cpu", 1},
		{"model", "modle", 2},
		{"minima", "maxima", 2},
		{"Load", "load", 1},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		t.Run(tt.a+"->"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b))
		})
	}
}

func TestSuggestSimilar(t *testing.T) {
	screens := []string{"Model", "Local", "Minima", "Maxima", "Processes"}

	tests := []struct {
		name  string
		input string
		limit int
		want  []string
	}{
		{"transposed letters", "modle", 3, []string{"Model"}},
		{"closest first", "maxim", 3, []string{"Maxima", "Minima"}},
		{"limit applies", "maxim", 1, []string{"Maxima"}},
		{"missing suffix", "process", 3, []string{"Processes"}},
		{"ignores case", "LOCAL", 3, []string{"Local"}},
		{"exact match only", "Model", 3, []string{"Model"}},
		{"nothing close", "zzz", 3, nil},
		{"empty input", "", 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestSimilar(tt.input, screens, tt.limit))
		})
	}
}

func TestSuggestSimilar_NoCandidates(t *testing.T) {
	assert.Nil(t, SuggestSimilar("Model", nil, 3))
	assert.Nil(t, SuggestSimilar("Model", []string{}, 3))
}
