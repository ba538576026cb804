package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a change to the commitment data.
type EventType string

const (
	TemplateCreated     EventType = "template.created"
	TemplateUpdated     EventType = "template.updated"
	TemplateDeleted     EventType = "template.deleted"
	OccurrenceUpdated   EventType = "occurrence.updated"
	OccurrenceDeleted   EventType = "occurrence.deleted"
	BillingRecalculated EventType = "billing.recalculated"
	StatementClosed     EventType = "statement.closed"
)

// CommitmentEvent is a lightweight notification about a change.
// Consumers fetch the current state from the store using EntityID.
type CommitmentEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Owner     string    `json:"owner"`
	EntityID  int64     `json:"entity_id,omitempty"`
	Period    string    `json:"period,omitempty"`
	Affected  int64     `json:"affected,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCommitmentEvent creates an event with a fresh id.
func NewCommitmentEvent(typ EventType, owner string, entityID int64) *CommitmentEvent {
	return &CommitmentEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		Owner:     owner,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

func (e *CommitmentEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func CommitmentEventFromJSON(data []byte) (*CommitmentEvent, error) {
	var e CommitmentEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
