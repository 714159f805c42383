package llm

import (
	"regexp"
	"strconv"
	"strings"
)

var permutationSanitizeRE = regexp.MustCompile(`[^\d,]`)

// ParsePermutation parses a model reply like "3, 1, 2" into a 0-based
// index order over n candidates. Non-digit noise is stripped, indexes
// outside 1..n are dropped, and duplicates keep their first position.
// Returns nil when nothing usable remains.
func ParsePermutation(reply string, n int) []int {
	cleaned := permutationSanitizeRE.ReplaceAllString(reply, "")
	if cleaned == "" {
		return nil
	}

	seen := make(map[int]struct{}, n)
	order := make([]int, 0, n)
	for _, part := range strings.Split(cleaned, ",") {
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil || v < 1 || v > n {
			continue
		}
		idx := v - 1
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		order = append(order, idx)
	}

	if len(order) == 0 {
		return nil
	}
	return order
}

// parseKind reads a classification reply, scanning for the project
// keyword anywhere in the completion.
func parseKind(reply string) (QueryKind, bool) {
	lower := strings.ToLower(strings.TrimSpace(reply))
	if lower == "" {
		return "", false
	}
	if strings.Contains(lower, "project") {
		return KindProjectBased, true
	}
	if strings.Contains(lower, "expert") {
		return KindDirectExpert, true
	}
	return "", false
}

// parseLines splits a reply into trimmed non-empty lines, stripping
// list markers models like to add.
func parseLines(reply string, max int) []string {
	var out []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789.) ")
		line = strings.Trim(line, `"`)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}

// parseCommaList splits a comma-separated reply into trimmed items.
func parseCommaList(reply string, max int) []string {
	var out []string
	for _, part := range strings.Split(strings.ReplaceAll(reply, "\n", ","), ",") {
		part = strings.TrimSpace(strings.Trim(strings.TrimSpace(part), `"`))
		if part == "" {
			continue
		}
		out = append(out, part)
		if len(out) == max {
			break
		}
	}
	return out
}
