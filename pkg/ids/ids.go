// Package ids defines the identifier types shared by the storage stack:
// tenants and timelines are each named by a 16-byte random id, printed as
// lowercase hex.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TenantID names a tenant: an isolated collection of timelines sharing
// one set of background checkpoint/GC loops and one on-disk directory.
type TenantID [16]byte

// TimelineID names one branch of page history within a tenant.
type TimelineID [16]byte

func (id TenantID) String() string   { return hex.EncodeToString(id[:]) }
func (id TimelineID) String() string { return hex.EncodeToString(id[:]) }

// NewTenantID returns a random TenantID.
func NewTenantID() (TenantID, error) {
	var id TenantID
	if _, err := rand.Read(id[:]); err != nil {
		return TenantID{}, fmt.Errorf("ids: generate tenant id: %w", err)
	}
	return id, nil
}

// NewTimelineID returns a random TimelineID.
func NewTimelineID() (TimelineID, error) {
	var id TimelineID
	if _, err := rand.Read(id[:]); err != nil {
		return TimelineID{}, fmt.Errorf("ids: generate timeline id: %w", err)
	}
	return id, nil
}

// TenantIDFromHex parses the hex form produced by TenantID.String.
func TenantIDFromHex(s string) (TenantID, error) {
	var id TenantID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(id) {
		return TenantID{}, fmt.Errorf("ids: invalid tenant id %q", s)
	}
	copy(id[:], b)
	return id, nil
}

// TimelineIDFromHex parses the hex form produced by TimelineID.String.
func TimelineIDFromHex(s string) (TimelineID, error) {
	var id TimelineID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(id) {
		return TimelineID{}, fmt.Errorf("ids: invalid timeline id %q", s)
	}
	copy(id[:], b)
	return id, nil
}
