package watcher

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// RawKind classifies a low-level filesystem notification.
type RawKind int

const (
	// Created means a file appeared, including as a rename destination.
	Created RawKind = iota
	// DataModified means file content was written.
	DataModified
	// MetadataModified means only attributes changed (mode, timestamps).
	MetadataModified
	// Removed means a file was deleted.
	Removed
	// Renamed means a file was moved away from its name.
	Renamed
)

// String returns a human-readable representation of the kind.
func (k RawKind) String() string {
	switch k {
	case Created:
		return "created"
	case DataModified:
		return "modified-data"
	case MetadataModified:
		return "modified-metadata"
	case Removed:
		return "removed"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// RawEvent is a classified OS notification and the paths it affects.
type RawEvent struct {
	Kind  RawKind
	Paths []string
}

// Classify maps an fsnotify event to a RawEvent. When several ops are
// combined, a write wins, so content changes are never hidden behind
// metadata noise.
func Classify(ev fsnotify.Event) RawEvent {
	raw := RawEvent{Paths: []string{ev.Name}}
	switch {
	case ev.Has(fsnotify.Write):
		raw.Kind = DataModified
	case ev.Has(fsnotify.Create):
		raw.Kind = Created
	case ev.Has(fsnotify.Remove):
		raw.Kind = Removed
	case ev.Has(fsnotify.Rename):
		raw.Kind = Renamed
	default:
		raw.Kind = MetadataModified
	}
	return raw
}

// Qualifies reports whether raw should produce a ChangeEvent for target:
// it must be a data modification of a path whose base name is the target's.
// With followReplace, a file created under the target's name (the last step
// of a rename-on-save) also qualifies.
func Qualifies(target Target, raw RawEvent, followReplace bool) bool {
	switch raw.Kind {
	case DataModified:
	case Created:
		if !followReplace {
			return false
		}
	default:
		return false
	}

	for _, p := range raw.Paths {
		if filepath.Base(p) == target.Name {
			return true
		}
	}
	return false
}
