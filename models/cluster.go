package models

import (
	"fmt"
	"strings"
)

// ClusterMode selects how listings are grouped.
type ClusterMode string

const (
	ClusterNone ClusterMode = "none"
	ClusterCity ClusterMode = "city"
	ClusterPin  ClusterMode = "pin"
	ClusterGeo  ClusterMode = "geo"
)

// ClusterModes lists every mode in display order.
var ClusterModes = []ClusterMode{ClusterNone, ClusterCity, ClusterPin, ClusterGeo}

// ParseClusterMode accepts a mode name case-insensitively. The empty string
// means ClusterNone.
func ParseClusterMode(s string) (ClusterMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ClusterNone, nil
	}
	for _, m := range ClusterModes {
		if string(m) == s {
			return m, nil
		}
	}
	return ClusterNone, fmt.Errorf("unknown cluster mode %q", s)
}

// Cluster is a derived, in-memory bucket of listings. It is never persisted.
type Cluster struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Count int        `json:"count"`
	Items []*Listing `json:"items"`
}

// Preview returns up to n items in arrival order.
func (c Cluster) Preview(n int) []*Listing {
	if n >= len(c.Items) {
		return c.Items
	}
	return c.Items[:n]
}
