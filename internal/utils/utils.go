package utils

import "strings"

func ContainsString(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}

// UniqueStrings removes duplicates while preserving first-seen order.
func UniqueStrings(input []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, val := range input {
		if !seen[val] {
			result = append(result, val)
			seen[val] = true
		}
	}
	return result
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// StripKindPrefix removes Reddit's "t1_"/"t3_"/"t5_" type prefixes from fullnames.
func StripKindPrefix(id string) string {
	for _, p := range []string{"t1_", "t3_", "t5_"} {
		if strings.HasPrefix(id, p) {
			return id[3:]
		}
	}
	return id
}

// NormalizeSubreddit lowercases and trims a subreddit name, dropping an "r/" prefix.
func NormalizeSubreddit(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "/r/")
	name = strings.TrimPrefix(name, "r/")
	return name
}
