package tenantauth

import "errors"

var (
	ErrUnauthorized   = errors.New("Unauthorized")
	ErrTenantRequired = errors.New("A target couple must be specified for this operation")
)
