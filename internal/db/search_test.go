package db

import (
	"slices"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"l'article", []string{"l", "article"}},
		{"Non-lieu", []string{"non", "lieu"}},
		{"cour  d'appel, 1re", []string{"cour", "d", "appel", "1re"}},
		{"art. L.1234-5", []string{"art", "l", "1234", "5"}},
		{"chambre_sociale", []string{"chambre_sociale"}},
		{" ,; -- ", nil},
	}
	for _, tt := range tests {
		if got := Tokenize(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
