package classify

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"invoice", "Invoice Total: $120.00", []string{"finance"}},
		{"paired tags", "University of Hong Kong working PAPER", []string{"research", "school"}},
		{"travel", "Cathay Pacific Airlines boarding pass", []string{"travel"}},
		{"union", "Tax receipt for the employment contract", []string{"finance", "tax", "work"}},
		{"substring match", "syntax notes", []string{"tax"}},
		{"none", "hello world", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	got := Merge([]string{"work", " finance", ""}, []string{"finance", "tax"})
	want := []string{"finance", "tax", "work"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Merge() = %v, want %v", got, want)
	}
}
