package services

import (
	"encoding/json"
	"time"

	"catalog/internal/models"

	"github.com/google/uuid"
)

const (
	// CatalogExchange is the exchange catalog events are published to.
	CatalogExchange = "catalog"

	EventBookCreated = "book.created"
	EventBookUpdated = "book.updated"
	EventBookDeleted = "book.deleted"
)

// EventPublisher delivers catalog events to a message broker.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// CatalogEvent is the message body of every catalog event.
type CatalogEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Timestamp string       `json:"timestamp"`
	ISBN      string       `json:"isbn"`
	Book      *models.Book `json:"book,omitempty"`
}

func newCatalogEvent(eventType, isbn string, book *models.Book) CatalogEvent {
	return CatalogEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ISBN:      isbn,
		Book:      book,
	}
}

func (e CatalogEvent) marshal() ([]byte, error) {
	return json.Marshal(e)
}
