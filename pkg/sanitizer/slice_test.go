package sanitizer

import (
	"reflect"
	"testing"
)

func TestNormalizeAmenities(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "order preserved",
			input: []string{"Wi-Fi", "Pool"},
			want:  []string{"Wi-Fi", "Pool"},
		},
		{
			name:  "whitespace normalized",
			input: []string{"  Air   Conditioning ", "Kitchen"},
			want:  []string{"Air Conditioning", "Kitchen"},
		},
		{
			name:  "case-insensitive duplicates dropped, first wins",
			input: []string{"Wi-Fi", "Pool", "wi-fi", "POOL"},
			want:  []string{"Wi-Fi", "Pool"},
		},
		{
			name:  "empties dropped",
			input: []string{"", "  ", "Balcony"},
			want:  []string{"Balcony"},
		},
		{
			name:  "nil",
			input: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAmenities(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeAmenities(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPipeline_AppliesInOrder(t *testing.T) {
	p := Pipeline{
		func(s string) string { return s + "a" },
		func(s string) string { return s + "b" },
	}
	if got := p.Apply("x"); got != "xab" {
		t.Errorf("Apply() = %q, want %q", got, "xab")
	}
}
