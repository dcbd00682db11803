package event

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is bumped whenever a payload changes incompatibly.
const SchemaVersion = 1

// Event is anything that can be routed to a message stream.
type Event interface {
	GetEventHeader() Header
	GetStreamName() string
}

type Header struct {
	ID         uuid.UUID `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Version    int       `json:"version"`
}

func (h *Header) GetEventHeader() Header {
	return *h
}

// NewEventHeader stamps a time-ordered id so consumers can sort by it.
func NewEventHeader() Header {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Header{
		ID:         id,
		OccurredAt: time.Now().UTC(),
		Version:    SchemaVersion,
	}
}
