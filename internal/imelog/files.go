package imelog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DefaultPatterns covers the agent's log family: the live logs plus their
// date-suffixed rollover archives (e.g. IntuneManagementExtension-20240328-010233.log).
var DefaultPatterns = []string{
	"IntuneManagementExtension*.log",
	"AgentExecutor*.log",
}

// FindLogFiles returns every file under dir matching one of the filename
// patterns, sorted lexicographically. The agent names archives with a date
// suffix, so lexicographic order processes archived content before the live
// log and preserves chronology across a rotation.
func FindLogFiles(dir string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	seen := make(map[string]struct{})
	var files []string
	for _, pat := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pat))
		if err != nil {
			return nil, fmt.Errorf("bad log pattern %q: %w", pat, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}

	sort.Strings(files)
	return files, nil
}

// ExpandLogDir expands environment variable references in the configured
// log directory (the agent's directory is normally given as
// "$ProgramData/Microsoft/IntuneManagementExtension/Logs" or a local
// capture path).
func ExpandLogDir(dir string) string {
	return filepath.Clean(os.ExpandEnv(dir))
}
