package entity

import (
	"time"

	"github.com/google/uuid"
)

type ReconciliationStage string

const (
	StageDecode      ReconciliationStage = "decode"
	StageResolution  ReconciliationStage = "resolution"
	StageValidation  ReconciliationStage = "validation"
	StagePersistence ReconciliationStage = "persistence"
	StageCart        ReconciliationStage = "cart"
)

// ReconciliationRecord flags a captured payment that did not fully turn
// into bookings and needs ops follow-up.
type ReconciliationRecord struct {
	ID            uuid.UUID           `db:"id"`
	TransactionID string              `db:"transaction_id"`
	CartItemID    string              `db:"cart_item_id"`
	Stage         ReconciliationStage `db:"stage"`
	Reason        string              `db:"reason"`
	CreatedAt     time.Time           `db:"created_at"`
}
