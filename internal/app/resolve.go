package app

import (
	"strings"

	"github.com/dev-tams/offhours/internal/cloud"
)

const (
	SourceMachine = "machine"
	SourceGroup   = "group"
)

type tagSource struct {
	name   string
	lookup func() (string, bool)
}

// resolveSchedule picks the schedule string that applies to a machine.
// The machine's own tag takes strict precedence over its resource
// group's; a blank tag value counts as absent.
func resolveSchedule(m cloud.Machine, groups map[string]cloud.Group, tagKey string) (string, string, bool) {
	sources := []tagSource{
		{
			name: SourceMachine,
			lookup: func() (string, bool) {
				v, ok := m.Tags[tagKey]
				return v, ok
			},
		},
		{
			name: SourceGroup,
			lookup: func() (string, bool) {
				g, ok := groups[m.Group]
				if !ok {
					return "", false
				}
				v, ok := g.Tags[tagKey]
				return v, ok
			},
		},
	}

	for _, s := range sources {
		if v, ok := s.lookup(); ok && strings.TrimSpace(v) != "" {
			return v, s.name, true
		}
	}
	return "", "", false
}
