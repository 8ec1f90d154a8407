package tenant

import (
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/nainya/pageserver/pkg/ids"
)

// BranchCreateRequest is the shape consumed by the (out-of-scope) HTTP
// management API's branch-create endpoint.
type BranchCreateRequest struct {
	TenantID   ids.TenantID
	Name       string
	StartPoint string
}

// TenantCreateRequest is the shape consumed by the (out-of-scope) HTTP
// management API's tenant-create endpoint. Every Conf field is optional;
// an absent field falls back to DefaultConf's value. Parsing the
// human-readable duration/size strings the wire request actually carries
// is the config layer's job, out of scope here; this struct is the typed
// value the config layer parses into.
type TenantCreateRequest struct {
	TenantID           ids.TenantID
	CheckpointDistance *datasize.ByteSize
	CheckpointPeriod   *time.Duration
	GCHorizon          *uint64
	GCPeriod           *time.Duration
	PitrInterval       *time.Duration
}

// Conf applies req's overrides on top of DefaultConf.
func (req TenantCreateRequest) Conf() Conf {
	c := DefaultConf()
	if req.CheckpointDistance != nil {
		c.CheckpointDistance = *req.CheckpointDistance
	}
	if req.CheckpointPeriod != nil {
		c.CheckpointPeriod = *req.CheckpointPeriod
	}
	if req.GCHorizon != nil {
		c.GCHorizon = *req.GCHorizon
	}
	if req.GCPeriod != nil {
		c.GCPeriod = *req.GCPeriod
	}
	if req.PitrInterval != nil {
		c.PitrInterval = *req.PitrInterval
	}
	return c
}
