// Package redcat is a redis-backed plugin catalog: descriptor records are
// published as JSON documents and discovered with SCAN and MGET, so
// several processes can share one plugin inventory. Record targets
// resolve to code on the consuming side through a
// discovery.TargetResolver.
package redcat

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Custom errors
var (
	ErrInvalidRecord = errors.New("invalid catalog record")
)

// Record represents one published plugin descriptor.
type Record struct {
	ID          string            `json:"id"`           // Unique identifier (e.g., UUID)
	Namespace   string            `json:"namespace"`    // Namespace the plugin belongs to
	Name        string            `json:"name"`         // Plugin name within the namespace
	Target      string            `json:"target"`       // Catalog target resolved on the consuming side
	Meta        map[string]string `json:"meta"`         // Optional key-value metadata
	PublishedAt time.Time         `json:"published_at"` // Stamped by Publish
}

// String provides a human-readable representation.
func (r *Record) String() string {
	return fmt.Sprintf("%s/%s@%s", r.Namespace, r.Name, r.Target)
}

// Validate checks the fields Publish requires.
func (r *Record) Validate() error {
	if r.Namespace == "" {
		return fmt.Errorf("%w: namespace is required", ErrInvalidRecord)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if r.Target == "" {
		return fmt.Errorf("%w: target is required", ErrInvalidRecord)
	}
	return nil
}

// hashRecords builds a fingerprint for a record list so Watch can detect
// changes. Sorts by ID for consistency.
func hashRecords(records []*Record) string {
	if len(records) == 0 {
		return "empty" // Explicit hash for empty list
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})

	var sb strings.Builder
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(";")
		}
		sb.WriteString(rec.ID)
		sb.WriteString("@")
		sb.WriteString(rec.Target)
	}
	return sb.String()
}
