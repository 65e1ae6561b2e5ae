package common

import (
	"strconv"
	"strings"
)

// AtoiDefault parses value as an int, returning def when it is blank or malformed.
func AtoiDefault(value string, def int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

// LimitParam parses a page size query value. Values outside 1..max fall back to def.
func LimitParam(value string, def, max int) int {
	n := AtoiDefault(value, def)
	if n < 1 || n > max {
		return def
	}
	return n
}
