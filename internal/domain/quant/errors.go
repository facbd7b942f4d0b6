package quant

import "errors"

// ErrProvisioning marks a quantifier response saying the backing compute is
// still cold-starting. Distinct from a failed call: provisioning is retried
// on its own budget.
var ErrProvisioning = errors.New("quantifier provisioning")
