package config

import "os"

// DetectTeam finds the first configured team whose detect patterns
// match an entry in entries (typically os.ReadDir(workingDir)), with an
// explicit override taking absolute precedence. An unknown override is
// still returned verbatim -- role resolution will error on it later if
// it genuinely doesn't exist, per spec §4.J step 2.
//
// entries is injected rather than read directly so callers (and tests)
// control the filesystem probe; teams is iterated in a fixed order
// (the order of names) so detection is deterministic given a fixed
// input, unlike the original's unordered HashMap iteration.
func DetectTeam(entries []os.DirEntry, teams map[string]Team, names []string, override string) string {
	if override != "" {
		return override
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Name()] = true
	}

	for _, name := range names {
		team, ok := teams[name]
		if !ok || len(team.Detect) == 0 {
			continue
		}
		for _, pattern := range team.Detect {
			if present[pattern] {
				return name
			}
		}
	}
	return ""
}
