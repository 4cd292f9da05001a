// Package playback decides an audio source per track and drives advance
// state for a loaded track queue.
package playback

import (
	"fmt"
	"sync"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"spindle/catalog"
)

// Source is the audio path chosen for one track.
type Source string

const (
	// SourceSDK delegates playback by URI to the authenticated Web
	// Playback SDK.
	SourceSDK Source = "sdk"
	// SourcePreview streams the track's 30-second preview clip.
	SourcePreview Source = "preview"
	// SourceCrackle synthesizes the vinyl-crackle loop in place of
	// unavailable audio.
	SourceCrackle Source = "crackle"
)

// DefaultCrackleDuration is the synthetic loop length for tracks that
// carry no duration.
const DefaultCrackleDuration = 180000 * time.Millisecond

type EventType string

const (
	EventLoaded   EventType = "loaded"
	EventStarted  EventType = "started"
	EventAdvanced EventType = "advanced"
	EventError    EventType = "error"
	EventStopped  EventType = "stopped"
)

type Event struct {
	Type   EventType
	Index  int
	Track  *catalog.Track
	Source Source
}

// Decide picks the source for one track. sdkReady reports whether an
// authenticated full-playback handle is available. Absent preview URLs are
// an expected case, not an error: they land on the crackle path.
func Decide(track *catalog.Track, sdkReady bool) Source {
	if track == nil {
		return SourceCrackle
	}
	if sdkReady && track.URI != "" {
		return SourceSDK
	}
	if track.PreviewURL != "" {
		return SourcePreview
	}
	return SourceCrackle
}

func crackleDuration(track *catalog.Track) time.Duration {
	if track.DurationMs <= 0 {
		return DefaultCrackleDuration
	}
	return time.Duration(track.DurationMs) * time.Millisecond
}

// Turntable drives one queue of tracks. Methods are safe for concurrent
// use. Every queue mutation bumps a generation counter; a synthetic-advance
// timer armed under an older generation is ignored when it fires, so a
// superseded queue can never advance the current one.
type Turntable struct {
	mutex      sync.Mutex
	tracks     []catalog.Track
	index      int
	playing    bool
	sdkReady   bool
	generation uint64
	timer      *time.Timer

	newTimer func(d time.Duration, fn func()) *time.Timer

	events chan Event
}

func NewTurntable() *Turntable {
	return &Turntable{
		newTimer: time.AfterFunc,
		events:   make(chan Event, 100),
	}
}

func (t *Turntable) Events() <-chan Event {
	return t.events
}

// SetSDKReady records whether the full-playback handle is available. It
// affects tracks started afterwards, not the one already spinning.
func (t *Turntable) SetSDKReady(ready bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.sdkReady = ready
}

// Load replaces the queue and resets position. Any advance scheduled for
// the previous queue is invalidated.
func (t *Turntable) Load(tracks []catalog.Track) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.supersedeLocked()
	t.tracks = append([]catalog.Track(nil), tracks...)
	t.index = 0
	t.playing = false

	log.Debugf("Loaded queue of %d tracks", len(t.tracks))
	t.emit(Event{Type: EventLoaded})
}

// Play starts the track at index and returns the chosen source.
func (t *Turntable) Play(index int) (Source, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if index < 0 || index >= len(t.tracks) {
		return "", fmt.Errorf("no track at index %d", index)
	}
	return t.startLocked(index), nil
}

// TrackEnded advances past an organically finished track (audio element
// "ended", SDK state change). Synthetic timers come in through their own
// generation-checked path.
func (t *Turntable) TrackEnded() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.advanceLocked()
}

// PlaybackFailed degrades the current track to the synthetic source after
// an audio error. The crackle loop still auto-advances when it elapses.
func (t *Turntable) PlaybackFailed() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.playing {
		return
	}
	track := &t.tracks[t.index]
	log.Debugf("Playback failed for %s, degrading to synthetic sound", track.Name)

	t.supersedeLocked()
	t.scheduleAdvanceLocked(crackleDuration(track))
	t.emit(Event{Type: EventError, Index: t.index, Track: track, Source: SourceCrackle})
}

// Stop halts playback and resets position.
func (t *Turntable) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.playing {
		return
	}
	t.stopLocked()
}

// Current returns the active track index and whether the platter is
// spinning.
func (t *Turntable) Current() (int, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.index, t.playing
}

func (t *Turntable) startLocked(index int) Source {
	t.supersedeLocked()
	t.index = index
	t.playing = true

	track := &t.tracks[index]
	source := Decide(track, t.sdkReady)
	if source == SourceCrackle {
		t.scheduleAdvanceLocked(crackleDuration(track))
	}

	log.Tracef("Playing track %d (%s) via %s", index, track.Name, source)
	t.emit(Event{Type: EventStarted, Index: index, Track: track, Source: source})
	return source
}

func (t *Turntable) advanceLocked() {
	if !t.playing {
		return
	}

	next := t.index + 1
	if next >= len(t.tracks) {
		log.Trace("Past the last track, stopping")
		t.stopLocked()
		return
	}

	t.emit(Event{Type: EventAdvanced, Index: next, Track: &t.tracks[next]})
	t.startLocked(next)
}

func (t *Turntable) stopLocked() {
	t.supersedeLocked()
	t.playing = false
	t.index = 0
	t.emit(Event{Type: EventStopped})
}

// supersedeLocked invalidates whatever advance is pending. The stop is
// best-effort; a timer that already fired is rejected by its generation.
func (t *Turntable) supersedeLocked() {
	t.generation++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Turntable) scheduleAdvanceLocked(d time.Duration) {
	gen := t.generation
	t.timer = t.newTimer(d, func() {
		t.syntheticEnded(gen)
	})
}

func (t *Turntable) syntheticEnded(gen uint64) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if gen != t.generation {
		log.Trace("Ignoring synthetic track-ended from a superseded queue")
		return
	}
	t.advanceLocked()
}

func (t *Turntable) emit(event Event) {
	select {
	case t.events <- event:
	default:
		msg := "Playback events channel is full"
		sentry.CaptureMessage(msg)
		log.Warn(msg)
	}
}
