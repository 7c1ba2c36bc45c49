package playback

import (
	"math/rand"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/tonefold/tonefold/internal/app/queue"
	"github.com/tonefold/tonefold/internal/domain/song"
)

// Config holds controller configuration.
type Config struct {
	// ScrubBackThreshold is the position past which Prev restarts the
	// current song instead of moving to the previous one.
	ScrubBackThreshold time.Duration

	// Rand seeds queue ordering. Nil means time-seeded.
	Rand *rand.Rand
}

const defaultScrubBackThreshold = 3 * time.Second

// Controller is the playback state machine. It owns the queue cursor and
// issues declarative commands to the media backend; backend outcomes come
// back through HandleSignal. Transitions are processed one at a time and
// backend faults never escape to the transition caller.
type Controller struct {
	mu sync.RWMutex

	// Cursor
	queue    []song.Song
	index    int
	state    State
	position time.Duration

	// Ordering policy
	shuffle queue.Mode
	repeat  RepeatMode
	source  []song.Song // Current source view, reused on shuffle rebuilds
	rng     *rand.Rand

	backend Backend
	tracker Tracker
	config  Config

	// The backend has no file loaded (stopped-at-end or failed load);
	// resuming must reload instead of unpausing.
	unloaded bool

	eventCh chan Event
	closed  bool
}

// NewController creates a new playback controller.
func NewController(config Config, backend Backend, tracker Tracker) *Controller {
	if config.ScrubBackThreshold <= 0 {
		config.ScrubBackThreshold = defaultScrubBackThreshold
	}
	rng := config.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Controller{
		state:   StateIdle,
		index:   -1,
		rng:     rng,
		backend: backend,
		tracker: tracker,
		config:  config,
		eventCh: make(chan Event, 16),
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Snapshot is a read-only view of the controller state.
type Snapshot struct {
	State    State
	Shuffle  queue.Mode
	Repeat   RepeatMode
	Queue    []song.Song
	Index    int
	Position time.Duration
}

// Current returns the song at the cursor, or nil when there is no cursor.
func (s Snapshot) Current() *song.Song {
	if s.Index < 0 || s.Index >= len(s.Queue) {
		return nil
	}
	cur := s.Queue[s.Index]
	return &cur
}

// Snapshot returns a copy of the observable controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q := make([]song.Song, len(c.queue))
	copy(q, c.queue)
	return Snapshot{
		State:    c.state,
		Shuffle:  c.shuffle,
		Repeat:   c.repeat,
		Queue:    q,
		Index:    c.index,
		Position: c.position,
	}
}

// Play initiates or resumes playback. With no cursor, a queue is built
// from source under the current shuffle mode and the cursor lands on id
// (or the first element when id is empty). With an existing cursor and no
// arguments, Play resumes.
func (c *Controller) Play(id string, source []song.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle && id == "" && source == nil {
		c.resumeLocked()
		return
	}

	if source != nil {
		c.source = make([]song.Song, len(source))
		copy(c.source, source)
	}
	if len(c.source) == 0 {
		return
	}

	c.queue = queue.Build(c.source, c.shuffle, c.rng)
	idx := 0
	if id != "" {
		if at, ok := queue.Locate(c.queue, id); ok {
			idx = at
		}
	}
	c.index = idx
	c.loadCurrentLocked()
}

// Pause halts the transport without touching the queue or position.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return
	}

	c.state = StatePaused
	c.issue("pause", c.backend.Pause())

	c.sendEventLocked(Event{Type: EventStateChanged, Song: c.currentLocked(), State: c.state})
}

// Resume restarts a paused transport.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeLocked()
}

func (c *Controller) resumeLocked() {
	if c.state != StatePaused || c.index < 0 {
		return
	}

	if c.unloaded {
		// The backend unloaded the file; unpausing alone would play
		// nothing.
		c.loadCurrentLocked()
		return
	}

	c.state = StatePlaying
	c.issue("play", c.backend.Play())

	c.sendEventLocked(Event{Type: EventStateChanged, Song: c.currentLocked(), State: c.state})
}

// Next advances the cursor. Under repeat-one the current song restarts
// instead. Past the last index the queue wraps under repeat-all,
// otherwise the transport stops at the last valid index.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextLocked()
}

func (c *Controller) nextLocked() {
	if c.index < 0 || len(c.queue) == 0 {
		return
	}

	cur := c.queue[c.index]

	if c.repeat == RepeatOne {
		// Restart the same song: a fresh play-through, so a fresh
		// play-session.
		c.tracker.Reset(cur.ID)
		c.position = 0
		c.state = StatePlaying
		c.issue("seek", c.backend.Seek(0))
		c.issue("play", c.backend.Play())
		return
	}

	if c.index+1 >= len(c.queue) {
		if c.repeat == RepeatAll {
			c.tracker.Reset(cur.ID)
			c.index = 0
			c.loadCurrentLocked()
			return
		}

		// Stopped-at-end: pointer stays on the last valid index.
		c.tracker.Reset(cur.ID)
		c.state = StatePaused
		c.unloaded = true
		c.issue("stop", c.backend.Stop())
		c.sendEventLocked(Event{Type: EventQueueEnded, Song: c.currentLocked(), State: c.state})
		return
	}

	c.tracker.Reset(cur.ID)
	c.index++
	c.loadCurrentLocked()
}

// Prev moves the cursor back. Past the scrub-back threshold it restarts
// the current song; on the first index with repeat off it is a no-op.
func (c *Controller) Prev() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index < 0 || len(c.queue) == 0 {
		return
	}

	if c.position > c.config.ScrubBackThreshold {
		// "Go back" means "restart this song" once playback has progressed.
		c.position = 0
		c.issue("seek", c.backend.Seek(0))
		return
	}

	cur := c.queue[c.index]

	if c.index == 0 {
		if c.repeat != RepeatAll {
			return
		}
		c.tracker.Reset(cur.ID)
		c.index = len(c.queue) - 1
		c.loadCurrentLocked()
		return
	}

	c.tracker.Reset(cur.ID)
	c.index--
	c.loadCurrentLocked()
}

// Seek moves the position within the current song, clamped to its
// duration. The playing flag is untouched.
func (c *Controller) Seek(pos time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index < 0 {
		return
	}

	if pos < 0 {
		pos = 0
	}
	if d := c.queue[c.index].Duration; d > 0 && pos > d {
		pos = d
	}

	c.position = pos
	c.issue("seek", c.backend.Seek(pos))
}

// Stop halts playback and discards the cursor.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur := c.currentLocked(); cur != nil {
		c.tracker.Reset(cur.ID)
	}
	c.issue("stop", c.backend.Stop())

	c.queue = nil
	c.index = -1
	c.position = 0
	c.state = StateIdle
	c.unloaded = true

	c.sendEventLocked(Event{Type: EventStateChanged, State: c.state})
}

// ToggleShuffle cycles the shuffle mode and rebuilds the queue from the
// current source view, relocating the cursor to wherever the playing
// identity landed so audible playback is uninterrupted.
func (c *Controller) ToggleShuffle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shuffle = c.shuffle.Cycle()

	if c.state == StateIdle {
		return
	}

	cur := c.queue[c.index]
	rebuilt := queue.Build(c.source, c.shuffle, c.rng)

	at, ok := queue.Locate(rebuilt, cur.ID)
	if !ok {
		// The playing identity left the source view: no cursor.
		zlog.Debug().Str("song", cur.ID).Msg("playback: current song absent from rebuilt queue, stopping")
		c.tracker.Reset(cur.ID)
		c.issue("stop", c.backend.Stop())
		c.queue = nil
		c.index = -1
		c.position = 0
		c.state = StateIdle
		c.unloaded = true
		c.sendEventLocked(Event{Type: EventStateChanged, State: c.state})
		return
	}

	c.queue = rebuilt
	c.index = at
}

// ToggleRepeat cycles the repeat mode.
func (c *Controller) ToggleRepeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repeat = c.repeat.Cycle()
}

// Shuffle returns the current shuffle mode.
func (c *Controller) Shuffle() queue.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shuffle
}

// Repeat returns the current repeat mode.
func (c *Controller) Repeat() RepeatMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.repeat
}

// HandleSignal consumes one backend-reported signal. Signals are
// processed to completion, one at a time.
func (c *Controller) HandleSignal(sig Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index < 0 {
		return
	}
	cur := c.queue[c.index]

	switch sig.Type {
	case SignalPositionChanged:
		c.position = sig.Position
		if c.state == StatePlaying {
			c.tracker.Observe(cur.ID, sig.Position, true)
		}

	case SignalDurationKnown:
		c.queue[c.index].Duration = sig.Duration

	case SignalEnded:
		// Finalize the play-count check before the cursor moves.
		if c.state == StatePlaying {
			c.tracker.Observe(cur.ID, c.position, true)
		}
		c.nextLocked()

	case SignalLoadFailed:
		// Absorbed: transport stops at the failing pointer, recovery is
		// a later user transition (Next, Play).
		zlog.Warn().Str("song", cur.ID).Str("reason", sig.Reason).Msg("playback: backend load failed")
		c.tracker.Reset(cur.ID)
		c.state = StatePaused
		c.unloaded = true
		c.sendEventLocked(Event{Type: EventLoadFailed, Song: &cur, State: c.state})
	}
}

// Close releases the controller's event channel.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.eventCh)
}

// loadCurrentLocked points the backend at the song under the cursor and
// starts it. Must be called with lock held.
func (c *Controller) loadCurrentLocked() {
	cur := c.queue[c.index]
	c.position = 0
	c.state = StatePlaying
	c.unloaded = false

	if err := c.backend.Load(cur); err != nil {
		zlog.Warn().Err(err).Str("song", cur.ID).Msg("playback: load rejected")
		c.state = StatePaused
		c.unloaded = true
		c.sendEventLocked(Event{Type: EventLoadFailed, Song: &cur, State: c.state})
		return
	}
	c.issue("play", c.backend.Play())

	c.sendEventLocked(Event{Type: EventTrackChanged, Song: &cur, State: c.state})
}

// currentLocked returns a copy of the song at the cursor. Must be called
// with lock held.
func (c *Controller) currentLocked() *song.Song {
	if c.index < 0 || c.index >= len(c.queue) {
		return nil
	}
	cur := c.queue[c.index]
	return &cur
}

// issue logs a failed backend command. Transport faults are absorbed, not
// propagated.
func (c *Controller) issue(op string, err error) {
	if err != nil {
		zlog.Warn().Err(err).Str("op", op).Msg("playback: backend command failed")
	}
}

// sendEventLocked sends an event without blocking. Must be called with
// lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	select {
	case c.eventCh <- e:
	default:
		// Channel full, drop event
	}
}
