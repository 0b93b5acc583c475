package relay

import "strings"

// Event is an inbound deploy webhook payload. Every field beyond Type is
// optional; senders vary in how much detail they attach.
type Event struct {
	Type      string     `json:"type"`
	Timestamp string     `json:"timestamp,omitempty"`
	Data      *EventData `json:"data,omitempty"`
}

type EventData struct {
	ServiceID   string `json:"serviceId,omitempty"`
	ServiceName string `json:"serviceName,omitempty"`
	DeployID    string `json:"deployId,omitempty"`
	Region      string `json:"region,omitempty"`
}

var failureMarkers = []string{"fail", "error", "crash"}

// IsFailure classifies the event by its type string, case-insensitively.
func (e *Event) IsFailure() bool {
	t := strings.ToLower(e.Type)
	for _, marker := range failureMarkers {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}

// ServiceID returns the event's service identifier, or "" if absent.
func (e *Event) ServiceID() string {
	if e.Data == nil {
		return ""
	}
	return e.Data.ServiceID
}

// ServiceLabel prefers the human name over the raw service ID.
func (e *Event) ServiceLabel() string {
	if e.Data == nil {
		return ""
	}
	if e.Data.ServiceName != "" {
		return e.Data.ServiceName
	}
	return e.Data.ServiceID
}
