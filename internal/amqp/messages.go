package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried by LedgerEventMessage.
const (
	EventDeposit          = "deposit"
	EventOutcomeRecorded  = "outcome_recorded"
	EventOutcomeRevised   = "outcome_revised"
	EventOutcomeRemoved   = "outcome_removed"
	EventCategoryReleased = "category_released"
)

// LedgerEventMessage is a lightweight notification that an account's ledger
// changed. Consumers fetch current state from the store; the message carries
// only identifiers, never amounts or balances.
type LedgerEventMessage struct {
	Kind      string    `json:"kind"`
	AccountID int64     `json:"account_id"`
	RecordID  int64     `json:"record_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event message stamped with the current time.
func NewLedgerEventMessage(kind string, accountID, recordID int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:      kind,
		AccountID: accountID,
		RecordID:  recordID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
