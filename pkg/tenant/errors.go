package tenant

import "errors"

// ErrUnknownTenant is returned by Manager methods addressing a tenant id
// that was never registered.
var ErrUnknownTenant = errors.New("tenant: unknown tenant id")

// ErrAlreadyRegistered is returned by Register when the tenant id is
// already known to the Manager.
var ErrAlreadyRegistered = errors.New("tenant: tenant id already registered")
