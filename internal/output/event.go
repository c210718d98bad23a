package output

import "time"

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type EventName string

const (
	EventSyncStarted   EventName = "sync_started"
	EventPlanReady     EventName = "plan_ready"
	EventTrackStarted  EventName = "track_started"
	EventTrackResolved EventName = "track_resolved"
	EventTrackFinished EventName = "track_finished"
	EventTrackFailed   EventName = "track_failed"
	EventTrackMoved    EventName = "track_moved"
	EventLyricsFound   EventName = "lyrics_found"
	EventSyncFinished  EventName = "sync_finished"
)

type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Event     EventName      `json:"event"`
	TrackID   string         `json:"track_id,omitempty"`
	Position  int            `json:"position,omitempty"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}
