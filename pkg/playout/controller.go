// ABOUTME: Command surface for playout sessions
// ABOUTME: Owns at most one engine/backend pair and reports status and result codes
package playout

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soundvision/audio-playout/pkg/audio"
	"github.com/soundvision/audio-playout/pkg/audio/output"
)

// Config holds controller configuration
type Config struct {
	// NewBackend creates a backend by kind (default: output.New)
	NewBackend func(kind output.Kind) (output.Backend, error)

	// OpenSource opens the PCM file (default: OpenFile)
	OpenSource SourceOpener

	// StateTimeout bounds backend start/stop confirmation (default: 2s)
	StateTimeout time.Duration

	ShareMode   output.ShareMode
	Performance output.PerformanceMode

	// OnStateChange is called when the session state changes
	OnStateChange func(Status)

	// OnError is called when a session ends with an error
	OnError func(error)
}

// Session is one source bound to one backend kind
type Session struct {
	ID      uuid.UUID
	Path    string
	Backend output.Kind
	Created time.Time

	engine *Engine
	quit   chan struct{}
	wg     sync.WaitGroup
}

// Engine returns the session's engine
func (s *Session) Engine() *Engine {
	return s.engine
}

// Status describes the controller at one instant
type Status struct {
	Active    bool
	SessionID string
	Path      string
	Backend   output.Kind
	Format    audio.Format
	State     State
	Stats     Stats
	LastError error
}

// Controller translates init/start/stop commands into engine calls
type Controller struct {
	config Config

	mu      sync.Mutex
	session *Session
	lastErr error
}

// NewController creates a controller with no active session
func NewController(config Config) *Controller {
	if config.NewBackend == nil {
		config.NewBackend = output.New
	}
	if config.OpenSource == nil {
		config.OpenSource = OpenFile
	}
	if config.StateTimeout == 0 {
		config.StateTimeout = 2 * time.Second
	}
	return &Controller{config: config}
}

// SetSource creates a session for path played through kind
func (c *Controller) SetSource(path string, kind output.Kind) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return nil, fmt.Errorf("%w: session %s", ErrAlreadyActive, c.session.ID)
	}
	if _, err := output.ParseKind(string(kind)); err != nil {
		c.lastErr = err
		return nil, err
	}

	newBackend := c.config.NewBackend
	s := &Session{
		ID:      uuid.New(),
		Path:    path,
		Backend: kind,
		Created: time.Now(),
		quit:    make(chan struct{}),
	}
	s.engine = NewEngine(EngineConfig{
		Path:         path,
		NewBackend:   func() (output.Backend, error) { return newBackend(kind) },
		OpenSource:   c.config.OpenSource,
		StateTimeout: c.config.StateTimeout,
		ShareMode:    c.config.ShareMode,
		Performance:  c.config.Performance,
	})

	c.session = s
	c.lastErr = nil
	log.Printf("Session %s created: %s via %s", s.ID, path, kind)
	return s, nil
}

// Init configures the active session's engine
func (c *Controller) Init(sampleRate, channels int) error {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: no session", ErrState)
	}

	err := s.engine.Configure(sampleRate, channels)
	c.record(err)
	if err == nil {
		c.watch(s)
	}
	c.mu.Unlock()

	c.notifyStateChange()
	return err
}

// Start starts playback of the active session
func (c *Controller) Start() error {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: no session", ErrState)
	}

	err := s.engine.Start()
	c.record(err)
	c.mu.Unlock()

	c.notifyStateChange()
	return err
}

// Stop stops the active session. The session is released even when the
// engine reports an error.
func (c *Controller) Stop() error {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: no session", ErrState)
	}

	err := s.engine.Stop()
	c.record(err)
	c.session = nil
	close(s.quit)
	c.mu.Unlock()

	s.wg.Wait()
	log.Printf("Session %s released (%s)", s.ID, Code(err))
	c.notifyStateChange()
	return err
}

// Configure is SetSource followed by Init. The session is released
// when Init fails.
func (c *Controller) Configure(path string, kind output.Kind, sampleRate, channels int) (*Session, error) {
	s, err := c.SetSource(path, kind)
	if err != nil {
		return nil, err
	}
	if err := c.Init(sampleRate, channels); err != nil {
		c.discard(s)
		return nil, err
	}
	return s, nil
}

// discard drops s if it is still the active session
func (c *Controller) discard(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != s {
		return
	}
	c.session = nil
	close(s.quit)
	log.Printf("Session %s discarded", s.ID)
}

// Session returns the active session, or nil
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Status returns a snapshot of the controller
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:     StateUninitialized,
		LastError: c.lastErr,
	}
	if s := c.session; s != nil {
		st.Active = true
		st.SessionID = s.ID.String()
		st.Path = s.Path
		st.Backend = s.Backend
		st.Format = s.engine.Format()
		st.State = s.engine.State()
		st.Stats = s.engine.Stats()
	}
	return st
}

func (c *Controller) record(err error) {
	if err != nil {
		c.lastErr = err
		log.Printf("Playout command failed (%s): %v", Code(err), err)
	}
}

// watch reports a session that ends by itself. Must hold c.mu.
func (c *Controller) watch(s *Session) {
	done := s.engine.Done()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.quit:
			return
		case <-done:
		}

		cause := s.engine.Err()
		if errors.Is(cause, io.EOF) {
			log.Printf("Session %s reached end of source", s.ID)
		} else {
			log.Printf("Session %s ended: %v", s.ID, cause)
			c.mu.Lock()
			c.lastErr = cause
			c.mu.Unlock()
			c.notifyError(cause)
		}
		c.notifyStateChange()
	}()
}

// notifyStateChange calls the OnStateChange callback if set
func (c *Controller) notifyStateChange() {
	if c.config.OnStateChange != nil {
		c.config.OnStateChange(c.Status())
	}
}

// notifyError calls the OnError callback if set
func (c *Controller) notifyError(err error) {
	if c.config.OnError != nil {
		c.config.OnError(err)
	}
}
