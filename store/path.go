package store

import (
	"strconv"
	"strings"
)

func itoa(n int) string { return strconv.Itoa(n) }

// joinPath joins path segments with "/", collapsing any doubled separators
// introduced by a caller-supplied leading/trailing slash.
func joinPath(segs ...string) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, strings.Trim(s, "/"))
	}
	return "/" + strings.Join(parts, "/") + "/"
}

// ParseRepetitionIndex extracts the integer suffix of a "repetitionN" group
// name, mirroring the original source's "key.strip('repetition')" scan.
func ParseRepetitionIndex(groupName string) (int, bool) {
	const prefix = "repetition"
	if !strings.HasPrefix(groupName, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(groupName, prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}
