package mbackup

import (
	"fmt"
	"strings"
)

// Kind is the backup category. It controls both the naming granularity
// of a backup directory and whether rotation applies to it.
type Kind int

const (
	Hourly Kind = iota
	Daily
	Monthly
	Manual
)

var kindNames = map[Kind]string{
	Hourly:  "hourly",
	Daily:   "daily",
	Monthly: "monthly",
	Manual:  "manual",
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{Hourly, Daily, Monthly, Manual}
}

// RotatedKinds returns the kinds that are subject to rotation.
func RotatedKinds() []Kind {
	return []Kind{Hourly, Daily, Monthly}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Rotated reports whether backups of this kind are pruned by rotation.
// Manual backups are never rotated.
func (k Kind) Rotated() bool {
	return k != Manual
}

// dirPrefix is the directory name prefix shared by every backup of this kind.
func (k Kind) dirPrefix() string {
	return dirPrefix + k.String() + "_"
}

// ParseKind converts a textual kind ("hourly", "daily", ...) into a Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown backup kind: %q", s)
}
