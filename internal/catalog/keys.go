package catalog

import (
	"fmt"
	"time"
)

// CompositeKey identifies a single Recording, matching the catalog's
// primary key: an event, a system, a channel, and a start time. StartTime
// is stored as Unix seconds (float64, matching the REAL column) rather
// than time.Time so that two keys built from the same instant compare
// equal as Go map keys regardless of monotonic-clock readings or location.
type CompositeKey struct {
	EventID       string
	System        string
	Channel       string
	StartTimeUnix float64
}

// NewCompositeKey builds a key from a wall-clock time, truncating to
// whole seconds the way the filename grammars do.
func NewCompositeKey(eventID, system, channel string, startTime time.Time) CompositeKey {
	return CompositeKey{
		EventID:       eventID,
		System:        system,
		Channel:       channel,
		StartTimeUnix: float64(startTime.Unix()),
	}
}

// String renders the key for logs and error messages.
func (k CompositeKey) String() string {
	return fmt.Sprintf("%s/%s/%s@%.0f", k.EventID, k.System, k.Channel, k.StartTimeUnix)
}
