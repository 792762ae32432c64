// Package classify suggests category tags from document text by keyword
// membership.
package classify

import (
	"sort"
	"strings"
)

// Rule adds every tag in Tags when any trigger occurs in the text.
type Rule struct {
	Tags     []string
	Triggers []string
}

// Rules is the fixed classification table. Categories are not mutually exclusive.
var Rules = []Rule{
	{Tags: []string{"finance"}, Triggers: []string{"invoice", "receipt", "amount", "total"}},
	{Tags: []string{"school", "research"}, Triggers: []string{"university", "paper", "references"}},
	{Tags: []string{"travel"}, Triggers: []string{"boarding", "ticket", "flight", "airlines"}},
	{Tags: []string{"tax"}, Triggers: []string{"tax"}},
	{Tags: []string{"work"}, Triggers: []string{"contract"}},
}

// Classify returns the sorted union of tags whose triggers appear in text,
// matched case-insensitively as substrings.
func Classify(text string) []string {
	lower := strings.ToLower(text)
	set := make(map[string]struct{})
	for _, r := range Rules {
		for _, trigger := range r.Triggers {
			if strings.Contains(lower, trigger) {
				for _, tag := range r.Tags {
					set[tag] = struct{}{}
				}
				break
			}
		}
	}
	return sortedKeys(set)
}

// Merge returns the sorted, duplicate-free union of existing and suggested.
// Blank tags are dropped and surrounding whitespace is trimmed.
func Merge(existing, suggested []string) []string {
	set := make(map[string]struct{}, len(existing)+len(suggested))
	for _, group := range [][]string{existing, suggested} {
		for _, tag := range group {
			if tag = strings.TrimSpace(tag); tag != "" {
				set[tag] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
