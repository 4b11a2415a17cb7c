package policy

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// GlobMatch reports whether value matches a doublestar pattern. Values are
// normalised to forward slashes first so one pattern works on every OS.
func GlobMatch(pattern, value string) bool {
	matched, err := doublestar.Match(pattern, filepath.ToSlash(value))
	if err != nil {
		return false
	}
	return matched
}

// MatchArgument matches one tool argument against a `when` pattern.
// Against an absolute path pattern, a string argument is first resolved to
// the clean absolute path the tools will actually open, so "//etc",
// "/tmp/../etc" and a relative path leading to /etc all match "/etc/**".
func MatchArgument(pattern string, value any) bool {
	s, ok := value.(string)
	if !ok {
		return GlobMatch(pattern, fmt.Sprintf("%v", value))
	}
	if path.IsAbs(pattern) || filepath.IsAbs(pattern) {
		if abs, err := filepath.Abs(s); err == nil {
			s = abs
		}
	}
	return GlobMatch(pattern, s)
}
