package record

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventRegistered    EventType = "stock.registered"
	EventReceived      EventType = "stock.received"
	EventReserved      EventType = "stock.reserved"
	EventReleased      EventType = "stock.released"
	EventShipped       EventType = "stock.shipped"
	EventReorderNeeded EventType = "stock.reorder_needed"
)

type Event struct {
	Id         string    `json:"id"`
	Type       EventType `json:"type"`
	Amount     int32     `json:"amount"`
	Record     Snapshot  `json:"record"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewEvent(eventType EventType, amount int32, r *StockRecord) Event {
	return Event{
		Id:         uuid.NewString(),
		Type:       eventType,
		Amount:     amount,
		Record:     r.Snapshot(),
		OccurredAt: time.Now().UTC(),
	}
}

func (e Event) Key() string {
	return Key(e.Record.ProductID, e.Record.Location)
}
