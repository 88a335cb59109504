// Package ledger is the append-only audit trail. Every accepted custody write
// produces exactly one entry here, committed atomically with the stage record
// it describes. Entries are never mutated or deleted; replaying a product's
// entries in sequence order reconstructs the exact chain of custody.
package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"krishichain/pkg/domain"
)

// Action labels for ledger entries, one per accepted custody write.
const (
	ActionProductRegistered      = "product_registered"
	ActionDistributorRecordAdded = "distributor_record_added"
	ActionRetailerRecordAdded    = "retailer_record_added"
	ActionCustomerVerified       = "customer_verified"
)

// Entry is one custody event. Seq is a per-product monotonic sequence
// assigned by the store at append time; Details is an opaque payload captured
// for auditing, never interpreted by the core.
type Entry struct {
	ID        uuid.UUID
	ProductID domain.ProductID
	Seq       int64
	Stage     domain.Stage
	ActorID   domain.ParticipantID
	Action    string
	Details   json.RawMessage
	Timestamp time.Time
}
