// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package dataset

import (
	"fmt"
	"time"

	"github.com/tomtom215/trackgraph/internal/models"
)

// Snapshot is an immutable, ordered set of listening events. It is never
// modified after construction; replacing the dataset means building a new one.
type Snapshot struct {
	events   []models.ListeningEvent
	loadedAt time.Time
}

// NewSnapshot takes ownership of events.
func NewSnapshot(events []models.ListeningEvent) *Snapshot {
	return &Snapshot{events: events, loadedAt: time.Now().UTC()}
}

// Rows returns the number of events.
func (s *Snapshot) Rows() int {
	if s == nil {
		return 0
	}
	return len(s.events)
}

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Events returns the backing slice. Callers must not modify it.
func (s *Snapshot) Events() []models.ListeningEvent {
	if s == nil {
		return nil
	}
	return s.events
}

// View is the subset of a snapshot selected by a filter key.
type View struct {
	Events []models.ListeningEvent
	Key    models.FilterKey
}

// TotalMs sums play time over the view.
func (v *View) TotalMs() int64 {
	var total int64
	for i := range v.Events {
		total += v.Events[i].MsPlayed
	}
	return total
}

// Plays returns the number of events in the view.
func (v *View) Plays() int {
	return len(v.Events)
}

// Bounds is a parsed filter key.
type Bounds struct {
	Start, End       time.Time
	HasStart, HasEnd bool
}

// Contains reports whether t falls in [Start, End).
func (b Bounds) Contains(t time.Time) bool {
	if b.HasStart && t.Before(b.Start) {
		return false
	}
	if b.HasEnd && !t.Before(b.End) {
		return false
	}
	return true
}

// ParseBounds validates the raw bounds of a filter key.
func ParseBounds(key models.FilterKey) (Bounds, error) {
	var b Bounds
	if key.Start != "" {
		t, err := ParseTime(key.Start)
		if err != nil {
			return Bounds{}, fmt.Errorf("%w: Invalid 'start' date format. Use ISO like 2021-01-01.", models.ErrInvalidInput)
		}
		b.Start, b.HasStart = t, true
	}
	if key.End != "" {
		t, err := ParseTime(key.End)
		if err != nil {
			return Bounds{}, fmt.Errorf("%w: Invalid 'end' date format. Use ISO like 2021-12-31.", models.ErrInvalidInput)
		}
		b.End, b.HasEnd = t, true
	}
	return b, nil
}

// Filter selects the events of snap with start <= ts < end. An empty key
// shares the snapshot's slice without copying.
func Filter(snap *Snapshot, key models.FilterKey) (*View, error) {
	bounds, err := ParseBounds(key)
	if err != nil {
		return nil, err
	}
	events := snap.Events()
	if !bounds.HasStart && !bounds.HasEnd {
		return &View{Events: events, Key: key}, nil
	}

	out := make([]models.ListeningEvent, 0, len(events)/4)
	for i := range events {
		if bounds.Contains(events[i].Timestamp) {
			out = append(out, events[i])
		}
	}
	return &View{Events: out, Key: key}, nil
}
