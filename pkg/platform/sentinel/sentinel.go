package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about resources, not validation failures:
//   - ErrNotFound: entity does not exist in the store
//   - ErrDuplicate: a uniqueness constraint (username, email, qr token, one
//     record per stage) would be violated
//   - ErrStaleStage: a compare-and-swap stage advance observed a different
//     current stage than expected
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate")
	ErrStaleStage = errors.New("stale stage")
)
