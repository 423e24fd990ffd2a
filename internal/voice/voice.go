// Package voice runs per-guild ambient voice sessions. A session joins a
// voice channel and plays random sounds from the library on a randomized
// schedule until a duration timer fires, a disconnect coin flip lands, or the
// session is torn down.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// ErrNoAudio is returned when the sound library has nothing to play.
var ErrNoAudio = errors.New("no audio files available")

// Conn is a live voice connection. Play blocks until the track finishes or
// ctx is cancelled. Close disconnects.
type Conn interface {
	Play(ctx context.Context, track string) error
	Close() error
}

// Connector resolves and joins platform voice channels.
type Connector interface {
	Resolve(guildID, query string) (channelID, name string, err error)
	Join(ctx context.Context, guildID, channelID string) (Conn, error)
}

// Library lists playable tracks. It is consulted on every pick so the set can
// change while a session is live.
type Library interface {
	Tracks() []string
}

// Config tunes session scheduling.
type Config struct {
	StartupDelay     time.Duration
	MinInterval      time.Duration
	MaxInterval      time.Duration
	ContinueChance   float64 // probability of playing another sound
	DisconnectChance float64 // probability of leaving, checked after ContinueChance fails
	GraceDelay       time.Duration
	DefaultMinutes   int
}

type session struct {
	guildID       string
	channelID     string
	channelName   string
	textChannelID string
	conn          Conn

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

// Manager owns at most one session per guild.
type Manager struct {
	connector Connector
	library   Library
	cfg       Config
	notify    func(channelID, text string)
	log       *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session

	chance    func() float64
	pick      func(n int) int
	timerUnit time.Duration
}

// New creates a voice manager. notify posts user-facing status to the text
// channel a session was requested from.
func New(connector Connector, library Library, cfg Config,
	notify func(channelID, text string), log *slog.Logger) *Manager {
	return &Manager{
		connector: connector,
		library:   library,
		cfg:       cfg,
		notify:    notify,
		log:       log,
		sessions:  make(map[string]*session),
		chance:    rand.Float64,
		pick:      rand.Intn,
		timerUnit: time.Minute,
	}
}

// Join connects to the voice channel matching query. A request for the channel
// the guild session is already in extends it with another duration timer; a
// request for a different channel tears the old session down first. ctx bounds
// the join attempt only, not the session's lifetime.
func (m *Manager) Join(ctx context.Context, guildID, textChannelID, query string, minutes int) error {
	if len(m.library.Tracks()) == 0 {
		return ErrNoAudio
	}

	channelID, channelName, err := m.connector.Resolve(guildID, query)
	if err != nil {
		return fmt.Errorf("resolve voice channel %q: %w", query, err)
	}

	for {
		m.mu.Lock()
		cur := m.sessions[guildID]

		if cur == nil {
			sctx, cancel := context.WithCancel(context.Background())
			s := &session{
				guildID:       guildID,
				channelID:     channelID,
				channelName:   channelName,
				textChannelID: textChannelID,
				ctx:           sctx,
				cancel:        cancel,
				done:          make(chan struct{}),
			}
			m.sessions[guildID] = s
			m.mu.Unlock()

			conn, err := m.connector.Join(ctx, guildID, channelID)
			if err != nil {
				m.release(s)
				close(s.done)
				cancel()
				return fmt.Errorf("join voice channel %q: %w", channelName, err)
			}
			s.conn = conn

			go s.run(m)
			m.startTimer(s, minutes)
			m.notify(textChannelID, fmt.Sprintf("Joining %s.", channelName))
			return nil
		}

		if cur.ctx.Err() != nil {
			// Teardown in flight, wait for it to finish and retry.
			m.mu.Unlock()
			<-cur.done
			continue
		}

		if cur.channelID == channelID {
			m.mu.Unlock()
			m.startTimer(cur, minutes)
			m.notify(textChannelID, fmt.Sprintf("Already in %s, staying a while longer.", channelName))
			return nil
		}

		// Moving channels: stop the old session, then come around again.
		m.mu.Unlock()
		m.stop(cur)
		select {
		case <-time.After(m.cfg.GraceDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Leave tears down the guild's session if one exists.
func (m *Manager) Leave(guildID string) bool {
	m.mu.Lock()
	s := m.sessions[guildID]
	m.mu.Unlock()
	if s == nil {
		return false
	}
	m.stop(s)
	return true
}

// Shutdown tears down every live session and waits for them to exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	live := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()
	for _, s := range live {
		m.stop(s)
	}
}

// stop cancels a session and waits for its goroutine to finish teardown.
// Safe to call from multiple goroutines; exactly one disconnect happens.
func (m *Manager) stop(s *session) {
	s.stopOnce.Do(s.cancel)
	<-s.done
}

func (m *Manager) release(s *session) {
	m.mu.Lock()
	if m.sessions[s.guildID] == s {
		delete(m.sessions, s.guildID)
	}
	m.mu.Unlock()
}

// startTimer schedules a teardown after the requested duration. Each call adds
// an independent timer; the first to fire wins, the rest find the session gone.
func (m *Manager) startTimer(s *session, minutes int) {
	if minutes <= 0 {
		minutes = m.cfg.DefaultMinutes
	}
	if minutes <= 0 {
		return
	}
	go func() {
		timer := time.NewTimer(time.Duration(minutes) * m.timerUnit)
		defer timer.Stop()
		select {
		case <-timer.C:
			m.stop(s)
		case <-s.ctx.Done():
		}
	}()
}

// run is the session scheduler. It owns teardown: the connection is closed and
// the registry entry removed exactly once, here, no matter how the loop exits.
func (s *session) run(m *Manager) {
	defer func() {
		if err := s.conn.Close(); err != nil {
			m.log.Warn("voice disconnect failed", "guild", s.guildID, "error", err)
		}
		m.release(s)
		s.cancel()
		close(s.done)
	}()

	if !s.sleep(m.cfg.StartupDelay) {
		return
	}

	for {
		tracks := m.library.Tracks()
		if len(tracks) == 0 {
			m.notify(s.textChannelID, "Ran out of sounds to play, heading out.")
			return
		}
		track := tracks[m.pick(len(tracks))]
		if err := s.conn.Play(s.ctx, track); err != nil {
			m.log.Warn("playback failed", "guild", s.guildID, "track", track, "error", err)
		}
		if s.ctx.Err() != nil {
			return
		}

		wait := m.interval()
		if m.chance() < m.cfg.ContinueChance {
			if !s.sleep(wait) {
				return
			}
			continue
		}
		if m.chance() < m.cfg.DisconnectChance {
			m.notify(s.textChannelID, fmt.Sprintf("Leaving %s, see you around.", s.channelName))
			return
		}
		if !s.sleep(wait) {
			return
		}
	}
}

func (m *Manager) interval() time.Duration {
	if m.cfg.MaxInterval <= m.cfg.MinInterval {
		return m.cfg.MinInterval
	}
	spread := m.cfg.MaxInterval - m.cfg.MinInterval
	return m.cfg.MinInterval + time.Duration(m.chance()*float64(spread))
}

// sleep waits for d or until the session is cancelled. Returns false when the
// session should exit.
func (s *session) sleep(d time.Duration) bool {
	if d <= 0 {
		return s.ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}
