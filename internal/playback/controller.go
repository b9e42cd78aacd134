// Package playback owns the transport control state for a single media
// session: play/pause/seek/mute/fullscreen, plus the controls
// auto-hide timer. It is independent of any rendering layer; a UI
// subscribes to state snapshots through an Observer.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clipstream/internal/video"
	"clipstream/internal/view"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
	StateErrored State = "errored"
)

// ErrPlayback tags transport-level failures (decode errors, network
// interruption). No automatic retry or fallback source is attempted.
var ErrPlayback = errors.New("playback error")

// DefaultControlsHideDelay is how long after the last pointer activity
// the controls hide while playing.
const DefaultControlsHideDelay = 3 * time.Second

// Transport is the media element the controller drives. Calls are
// requests: fullscreen in particular may be refused by the environment,
// so the controller resynchronizes from HandleFullscreenChange rather
// than trusting the request.
type Transport interface {
	Play()
	Pause()
	SeekTo(seconds float64)
	SetMuted(muted bool)
	RequestFullscreen()
	ExitFullscreen()
}

// Snapshot is the controller's externally visible state at one moment.
type Snapshot struct {
	State           State
	Video           *video.Video
	CurrentTime     float64
	Duration        float64
	IsPlaying       bool
	IsMuted         bool
	IsFullscreen    bool
	ControlsVisible bool
	Err             error
}

// Observer receives a snapshot after every state change.
type Observer func(Snapshot)

// Controller is the transport state machine for one media session.
// All events funnel through its mutex; there is one logical writer at
// a time.
type Controller struct {
	store     video.Store
	gate      *view.Gate
	transport Transport
	log       *slog.Logger

	mu        sync.Mutex
	snap      Snapshot
	observer  Observer
	hideDelay time.Duration
	hideTimer *time.Timer
}

func NewController(store video.Store, gate *view.Gate, transport Transport, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		store:     store,
		gate:      gate,
		transport: transport,
		log:       log,
		snap: Snapshot{
			State:           StateIdle,
			ControlsVisible: true,
		},
		hideDelay: DefaultControlsHideDelay,
	}
}

// SetObserver registers the state-change subscriber. Must be called
// before Start.
func (c *Controller) SetObserver(obs Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = obs
}

// SetControlsHideDelay overrides the auto-hide delay.
func (c *Controller) SetControlsHideDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hideDelay = d
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Start fetches the record and runs the access check before the first
// frame. viewer is empty for anonymous sessions. The controller only
// reaches ready when the record exists and viewing is permitted; each
// failure carries a distinct reason.
func (c *Controller) Start(ctx context.Context, videoID, viewer string) error {
	c.mu.Lock()
	if c.snap.State != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("session already started (state %s)", c.snap.State)
	}
	c.snap.State = StateLoading
	snap := c.snap
	c.mu.Unlock()
	c.notify(snap)

	rec, err := c.store.Get(ctx, videoID)
	if err != nil {
		c.log.Error("failed to fetch video", "video_id", videoID, "error", err)
		return c.fail(fmt.Errorf("failed to load video: %w", err))
	}
	if rec == nil {
		return c.fail(video.ErrNotFound)
	}

	if err := c.gate.AuthorizeAndRecord(ctx, rec, viewer); err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	c.snap.State = StateReady
	c.snap.Video = rec
	snap = c.snap
	c.mu.Unlock()
	c.notify(snap)

	return nil
}

// Play is idempotent: invoking it while already playing is a no-op.
func (c *Controller) Play() {
	c.mu.Lock()
	if c.snap.State != StateReady && c.snap.State != StatePaused {
		c.mu.Unlock()
		return
	}
	c.snap.State = StatePlaying
	c.snap.IsPlaying = true
	snap := c.snap
	c.mu.Unlock()

	c.transport.Play()
	c.notify(snap)
}

// Pause is idempotent. Paused playback always keeps controls visible.
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.snap.State != StatePlaying {
		c.mu.Unlock()
		return
	}
	c.snap.State = StatePaused
	c.snap.IsPlaying = false
	c.snap.ControlsVisible = true
	snap := c.snap
	c.mu.Unlock()

	c.transport.Pause()
	c.notify(snap)
}

// Seek clamps target to [0, duration] and updates the position. It
// never changes the play/pause state.
func (c *Controller) Seek(target float64) {
	c.mu.Lock()
	switch c.snap.State {
	case StateReady, StatePlaying, StatePaused, StateEnded:
	default:
		c.mu.Unlock()
		return
	}

	if target < 0 {
		target = 0
	}
	if c.snap.Duration > 0 && target > c.snap.Duration {
		target = c.snap.Duration
	}
	c.snap.CurrentTime = target
	snap := c.snap
	c.mu.Unlock()

	c.transport.SeekTo(target)
	c.notify(snap)
}

// ToggleMute flips the muted flag and propagates it to the transport.
func (c *Controller) ToggleMute() {
	c.mu.Lock()
	c.snap.IsMuted = !c.snap.IsMuted
	muted := c.snap.IsMuted
	snap := c.snap
	c.mu.Unlock()

	c.transport.SetMuted(muted)
	c.notify(snap)
}

// ToggleFullscreen requests or exits full-screen presentation. The
// request may be refused, so the fullscreen flag is only updated from
// HandleFullscreenChange.
func (c *Controller) ToggleFullscreen() {
	c.mu.Lock()
	active := c.snap.IsFullscreen
	c.mu.Unlock()

	if active {
		c.transport.ExitFullscreen()
	} else {
		c.transport.RequestFullscreen()
	}
}

// PointerActivity shows the controls and restarts the inactivity
// timer. This is a debounce: each signal fully restarts the timer.
func (c *Controller) PointerActivity() {
	c.mu.Lock()
	changed := !c.snap.ControlsVisible
	c.snap.ControlsVisible = true
	if c.hideTimer != nil {
		c.hideTimer.Stop()
	}
	c.hideTimer = time.AfterFunc(c.hideDelay, c.hideControls)
	snap := c.snap
	c.mu.Unlock()

	if changed {
		c.notify(snap)
	}
}

// hideControls fires on timer expiry. Controls hide only while playing.
func (c *Controller) hideControls() {
	c.mu.Lock()
	if !c.snap.IsPlaying || !c.snap.ControlsVisible {
		c.mu.Unlock()
		return
	}
	c.snap.ControlsVisible = false
	snap := c.snap
	c.mu.Unlock()

	c.notify(snap)
}

// HandleLoadedMetadata records the media duration reported by the
// transport.
func (c *Controller) HandleLoadedMetadata(duration float64) {
	c.mu.Lock()
	c.snap.Duration = duration
	snap := c.snap
	c.mu.Unlock()

	c.notify(snap)
}

// HandleTimeUpdate records the playback position reported by the
// transport.
func (c *Controller) HandleTimeUpdate(current float64) {
	c.mu.Lock()
	c.snap.CurrentTime = current
	snap := c.snap
	c.mu.Unlock()

	c.notify(snap)
}

// HandleEnded transitions to ended when the transport reports
// end-of-media.
func (c *Controller) HandleEnded() {
	c.mu.Lock()
	if c.snap.State != StatePlaying {
		c.mu.Unlock()
		return
	}
	c.snap.State = StateEnded
	c.snap.IsPlaying = false
	c.snap.ControlsVisible = true
	snap := c.snap
	c.mu.Unlock()

	c.notify(snap)
}

// HandleFullscreenChange resynchronizes the fullscreen flag from the
// environment's own change notification.
func (c *Controller) HandleFullscreenChange(active bool) {
	c.mu.Lock()
	if c.snap.IsFullscreen == active {
		c.mu.Unlock()
		return
	}
	c.snap.IsFullscreen = active
	snap := c.snap
	c.mu.Unlock()

	c.notify(snap)
}

// HandleTransportError surfaces a transport failure as a single
// terminal error state.
func (c *Controller) HandleTransportError(err error) {
	c.log.Warn("transport error", "error", err)
	c.failWith(fmt.Errorf("%w: %w", ErrPlayback, err))
}

// Close releases the inactivity timer. Call on navigation away.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hideTimer != nil {
		c.hideTimer.Stop()
		c.hideTimer = nil
	}
}

func (c *Controller) fail(err error) error {
	c.failWith(err)
	return err
}

func (c *Controller) failWith(err error) {
	c.mu.Lock()
	c.snap.State = StateErrored
	c.snap.IsPlaying = false
	c.snap.ControlsVisible = true
	c.snap.Err = err
	snap := c.snap
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Controller) notify(snap Snapshot) {
	c.mu.Lock()
	obs := c.observer
	c.mu.Unlock()
	if obs != nil {
		obs(snap)
	}
}
