package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9 -]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// GenerateSlug lowercases the input, drops everything but letters, digits, spaces and
// hyphens, and joins words with single hyphens.
func GenerateSlug(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = slugInvalid.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ", "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ParseInt parses a string to int with a fallback default value
func ParseInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return val
}
