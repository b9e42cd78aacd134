package view

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipstream/internal/video"
)

type captureSink struct {
	events    []video.ViewEvent
	recordErr error
}

func (s *captureSink) Record(ctx context.Context, ev video.ViewEvent) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.events = append(s.events, ev)
	return nil
}

func publicVideo() *video.Video {
	return &video.Video{ID: "vid-1", OwnerID: "owner-1", IsPublic: true}
}

func privateVideo() *video.Video {
	return &video.Video{ID: "vid-1", OwnerID: "owner-1", IsPublic: false}
}

func TestAuthorizeAndRecordOncePerSession(t *testing.T) {
	sink := &captureSink{}
	gate := NewGate(NewMemorySessionStore(), sink, nil)
	ctx := context.Background()

	require.NoError(t, gate.AuthorizeAndRecord(ctx, publicVideo(), "viewer-1"))
	require.NoError(t, gate.AuthorizeAndRecord(ctx, publicVideo(), "viewer-1"))
	require.NoError(t, gate.AuthorizeAndRecord(ctx, publicVideo(), "viewer-1"))

	require.Len(t, sink.events, 1)
	assert.Equal(t, "vid-1", sink.events[0].VideoID)
	require.NotNil(t, sink.events[0].ViewerID)
	assert.Equal(t, "viewer-1", *sink.events[0].ViewerID)
}

func TestAuthorizeAndRecordNewSessionCountsAgain(t *testing.T) {
	sink := &captureSink{}
	ctx := context.Background()

	first := NewGate(NewMemorySessionStore(), sink, nil)
	require.NoError(t, first.AuthorizeAndRecord(ctx, publicVideo(), "viewer-1"))

	second := NewGate(NewMemorySessionStore(), sink, nil)
	require.NoError(t, second.AuthorizeAndRecord(ctx, publicVideo(), "viewer-1"))

	assert.Len(t, sink.events, 2)
}

func TestAuthorizeAndRecordAnonymousViewer(t *testing.T) {
	sink := &captureSink{}
	gate := NewGate(NewMemorySessionStore(), sink, nil)

	require.NoError(t, gate.AuthorizeAndRecord(context.Background(), publicVideo(), ""))

	require.Len(t, sink.events, 1)
	assert.Nil(t, sink.events[0].ViewerID)
}

func TestAuthorizeAndRecordPrivateAccess(t *testing.T) {
	tests := []struct {
		name    string
		viewer  string
		wantErr error
	}{
		{name: "anonymous denied", viewer: "", wantErr: video.ErrPrivateVideo},
		{name: "non-owner denied", viewer: "viewer-2", wantErr: video.ErrPrivateVideo},
		{name: "owner allowed", viewer: "owner-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &captureSink{}
			gate := NewGate(NewMemorySessionStore(), sink, nil)

			err := gate.AuthorizeAndRecord(context.Background(), privateVideo(), tt.viewer)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, sink.events)
				return
			}
			require.NoError(t, err)
			assert.Len(t, sink.events, 1)
		})
	}
}

func TestAuthorizeAndRecordSinkFailureDoesNotBlockPlayback(t *testing.T) {
	sink := &captureSink{recordErr: errors.New("queue unavailable")}
	markers := NewMemorySessionStore()
	gate := NewGate(markers, sink, nil)
	ctx := context.Background()

	require.NoError(t, gate.AuthorizeAndRecord(ctx, publicVideo(), "viewer-1"))

	// The marker stays unset so a later attempt can retry the write.
	assert.False(t, markers.Has("viewed_vid-1"))

	sink.recordErr = nil
	require.NoError(t, gate.AuthorizeAndRecord(ctx, publicVideo(), "viewer-1"))
	assert.Len(t, sink.events, 1)
	assert.True(t, markers.Has("viewed_vid-1"))
}

func TestSessionRegistry(t *testing.T) {
	reg := NewSessionRegistry()

	a := reg.Session("sess-a")
	b := reg.Session("sess-b")
	assert.NotSame(t, a, b)
	assert.Same(t, a, reg.Session("sess-a"))

	a.Set("viewed_vid-1")
	assert.True(t, reg.Session("sess-a").Has("viewed_vid-1"))
	assert.False(t, reg.Session("sess-b").Has("viewed_vid-1"))

	reg.Drop("sess-a")
	assert.False(t, reg.Session("sess-a").Has("viewed_vid-1"))
}

func registrySize(reg *SessionRegistry) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.sessions)
}

func TestSessionRegistryBoundedUnderOneShotClients(t *testing.T) {
	reg := newSessionRegistry(5)

	// Clients that never echo the cookie mint a new session per request.
	for i := 0; i < 500; i++ {
		reg.Session(fmt.Sprintf("sess-%d", i))
	}

	assert.LessOrEqual(t, registrySize(reg), 5)
}

func TestSessionRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	reg := newSessionRegistry(3)

	reg.Session("sess-a").Set("viewed_vid-1")
	reg.Session("sess-b")
	reg.Session("sess-c")
	reg.Session("sess-a")

	// Full: the next new session pushes out the stalest one, which is
	// not the just-touched sess-a.
	reg.Session("sess-d")

	assert.LessOrEqual(t, registrySize(reg), 3)
	assert.True(t, reg.Session("sess-a").Has("viewed_vid-1"))
}
