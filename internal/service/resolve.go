package service

import (
	"fmt"
	"strings"
)

// MatchProject picks the single project whose name equals name
// (case-insensitive, trimmed). Backends share this for ResolveProject.
func MatchProject(projects []Project, name string) (Project, error) {
	name = strings.TrimSpace(name)
	nameLower := strings.ToLower(name)

	var matches []Project
	for _, p := range projects {
		if strings.ToLower(strings.TrimSpace(p.Name)) == nameLower {
			matches = append(matches, p)
		}
	}

	switch len(matches) {
	case 0:
		return Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	case 1:
		return matches[0], nil
	default:
		return Project{}, fmt.Errorf("%w: %s", ErrProjectAmbiguous, name)
	}
}
