package testutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// ReplaceFile writes content to a temporary sibling of path and renames it
// over path, the way many editors save.
func ReplaceFile(path, content string) error {
	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp", filepath.Base(path)))
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// EventMatcher helps match SSE events
type EventMatcher struct {
	events []SSEEvent
}

// NewEventMatcher creates an event matcher
func NewEventMatcher(events []SSEEvent) *EventMatcher {
	return &EventMatcher{events: events}
}

// CountData counts events carrying data.
func (m *EventMatcher) CountData(data string) int {
	count := 0
	for _, e := range m.events {
		if e.Data == data {
			count++
		}
	}
	return count
}
