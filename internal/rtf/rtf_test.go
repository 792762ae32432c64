package rtf

import (
	"bytes"
	"strings"
	"testing"
)

func TestWritePages(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  string
	}{
		{"plain", []string{"Invoice 2024"}, "Invoice 2024"},
		{"lines", []string{"a\nb"}, "a\\par\nb"},
		{"escapes", []string{`{x} \ y`}, `\{x\} \\ y`},
		{"tab", []string{"a\tb"}, "a\\tab b"},
		{"latin", []string{"café"}, "caf\\u233?"},
		{"cjk", []string{"發票"}, "\\u30332?\\u31080?"},
		{"high plane", []string{"\U0001F600"}, "\\u-10179?\\u-8704?"},
		{"pages", []string{"one", "", "three"}, "one\\page\n\\page\nthree"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WritePages(&buf, tt.pages); err != nil {
				t.Fatal(err)
			}
			got := buf.String()
			if !strings.HasPrefix(got, header) || !strings.HasSuffix(got, "}\n") {
				t.Fatalf("document framing is wrong: %q", got)
			}
			if body := strings.TrimSuffix(strings.TrimPrefix(got, header), "}\n"); body != tt.want {
				t.Fatalf("body = %q, want %q", body, tt.want)
			}
		})
	}
}
