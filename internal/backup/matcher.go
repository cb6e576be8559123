package backup

import "strings"

// Excluded reports whether relPath is matched by any of the exclude patterns.
//
// Matching is deliberately loose: a pattern matches if it is a literal
// substring of the path, or if the path ends with the pattern after its
// wildcard characters are stripped. This lets broad patterns like "logs"
// cover "logs/2024.log" and "*.log" cover any log file. It is not glob
// matching and must stay that way; callers depend on the permissiveness.
func Excluded(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(relPath, pattern) {
			return true
		}
		if strings.HasSuffix(relPath, strings.ReplaceAll(pattern, "*", "")) {
			return true
		}
	}
	return false
}
