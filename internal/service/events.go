package service

// EventType defines the type of event
type EventType string

const (
	EventSchemaCreated       EventType = "schema_created"
	EventEmployeeInserted    EventType = "employee_inserted"
	EventEmployeeDuplicate   EventType = "employee_duplicate"
	EventBulkLoaded          EventType = "bulk_loaded"
	EventFilterIndexCreated  EventType = "filter_index_created"
	EventCompressedRefreshed EventType = "compressed_refreshed"
	EventExported            EventType = "exported"
)

// Event represents an event that occurred in the system
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish sends an event to all subscribers. A nil EventBus discards events.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
