// Package view enforces the read-access policy and records at most one
// view event per viewing session per video.
package view

import (
	"context"
	"log/slog"

	"clipstream/internal/video"
)

// SessionMarkerStore is the session-scoped idempotency capability. It
// lives and dies with one viewing session; clearing it (new session)
// legitimately produces another view event.
type SessionMarkerStore interface {
	Has(key string) bool
	Set(key string)
}

// Sink receives view events. Write-only: events are never read back.
type Sink interface {
	Record(ctx context.Context, ev video.ViewEvent) error
}

// Gate combines the access check with session-deduplicated view
// recording.
type Gate struct {
	markers SessionMarkerStore
	sink    Sink
	log     *slog.Logger
}

func NewGate(markers SessionMarkerStore, sink Sink, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{markers: markers, sink: sink, log: log}
}

func markerKey(videoID string) string {
	return "viewed_" + videoID
}

// AuthorizeAndRecord checks whether viewer may watch rec and, if so,
// emits a view event unless one was already emitted this session.
// viewer is empty for anonymous viewers. Sink failures are logged and
// leave the marker unset so a later call can retry; they never block
// playback.
func (g *Gate) AuthorizeAndRecord(ctx context.Context, rec *video.Video, viewer string) error {
	if !rec.IsPublic && (viewer == "" || viewer != rec.OwnerID) {
		return video.ErrPrivateVideo
	}

	key := markerKey(rec.ID)
	if g.markers.Has(key) {
		return nil
	}

	ev := video.ViewEvent{VideoID: rec.ID}
	if viewer != "" {
		v := viewer
		ev.ViewerID = &v
	}

	if err := g.sink.Record(ctx, ev); err != nil {
		g.log.Warn("failed to record view", "video_id", rec.ID, "error", err)
		return nil
	}
	g.markers.Set(key)

	return nil
}
