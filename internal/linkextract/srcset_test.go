package linkextract

import (
	"reflect"
	"testing"
)

func TestParseSrcset(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "two density candidates",
			input: "data:,a 1x, data:,b 2x",
			want:  []string{"data:,a", "data:,b"},
		},
		{
			name:  "width descriptor",
			input: "data:,a 1w",
			want:  []string{"data:,a"},
		},
		{
			name:  "invalid descriptor with parens drops candidate",
			input: "data:,a ( , data:,b 1x, ), data:,c",
			want:  []string{"data:,c"},
		},
		{
			name:  "no descriptor",
			input: "data:,a",
			want:  []string{"data:,a"},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSrcset(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseSrcset(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
