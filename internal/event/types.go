package event

import "time"

// Kind identifies what happened to the watched document.
type Kind string

const (
	// DataModified means the document's content was written. Metadata-only
	// changes (permissions, timestamps) never produce a ChangeEvent.
	DataModified Kind = "document.modified"
)

// ChangesTopic is the watermill topic every published ChangeEvent is mirrored to.
const ChangesTopic = "document.changed"

// ChangeEvent signals that the watched document's content changed.
type ChangeEvent struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
	// OccurredAt is advisory and only used for logging.
	OccurredAt time.Time `json:"occurredAt"`
}

// NewChangeEvent returns a DataModified event for path stamped with the current time.
func NewChangeEvent(path string) ChangeEvent {
	return ChangeEvent{
		Kind:       DataModified,
		Path:       path,
		OccurredAt: time.Now(),
	}
}

// Subscriber is a registered consumer of change events.
type Subscriber struct {
	// ID is unique among registered subscribers.
	ID string
	// C delivers events in publish order. It is closed when the subscriber
	// is removed or the hub is closed.
	C <-chan ChangeEvent
}
