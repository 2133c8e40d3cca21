package lifecycle

import (
	"os"
	"strings"
)

// AbbrevDir shortens an absolute directory path for use in a terminal
// title: the home directory collapses to ~ when homeTilde is set, and
// when the remainder has more than maxComponents path components only
// the trailing ones are kept behind an ellipsis. maxComponents <= 0
// disables truncation.
func AbbrevDir(path string, homeTilde bool, maxComponents int) string {
	if path == "" {
		return ""
	}

	if homeTilde {
		if home, err := os.UserHomeDir(); err == nil && home != "" && home != "/" {
			if path == home {
				return "~"
			}
			if strings.HasPrefix(path, home+"/") {
				path = "~" + path[len(home):]
			}
		}
	}

	if maxComponents <= 0 {
		return path
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) <= maxComponents {
		return path
	}
	return "…/" + strings.Join(parts[len(parts)-maxComponents:], "/")
}
