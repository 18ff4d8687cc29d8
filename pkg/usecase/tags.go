package usecase

import (
	"regexp"
	"slices"
	"strings"
)

var tagGarbage = regexp.MustCompile(`[^a-zA-Z0-9]`)

// DeriveTags returns the ticket tags for an issue: the defaults, then the
// components, then the labels, normalized and without duplicates.
// Labels containing "_" are not migrated.
func DeriveTags(defaults, components, labels []string) []string {
	tags := make([]string, 0, len(defaults)+len(components)+len(labels))
	add := func(tag string) {
		if tag != "" && !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}

	for _, t := range defaults {
		add(t)
	}
	for _, c := range components {
		add(capitalize(c))
	}
	for _, label := range labels {
		if strings.Contains(label, "_") {
			continue
		}
		add(labelTag(label))
	}
	return tags
}

func labelTag(label string) string {
	if strings.Contains(label, "-") {
		var parts []string
		for _, seg := range strings.Split(label, "-") {
			if seg = tagGarbage.ReplaceAllString(seg, ""); seg != "" {
				parts = append(parts, capitalize(seg))
			}
		}
		return strings.Join(parts, "-")
	}

	clean := tagGarbage.ReplaceAllString(label, "")
	if len(clean) > 3 {
		return capitalize(clean)
	}
	return strings.ToUpper(clean)
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
