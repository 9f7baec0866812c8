// Package stream relays the action camera's live feed to a local viewer.
//
// A Supervisor owns at most one Session. Starting a session wakes the camera
// up over HTTP, launches the viewer process and runs a keep-alive loop that
// sends a UDP datagram to the camera every interval. Stopping cancels the loop
// and terminates the tracked viewer process.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"com.aiac.relay/pkg/config"
	"github.com/apex/log"
)

var (
	ErrCameraUnreachable       = errors.New("camera unreachable")
	ErrViewerLaunchFailed      = errors.New("viewer launch failed")
	ErrViewerTerminationFailed = errors.New("viewer termination failed")
	ErrSupervisorClosed        = errors.New("stream supervisor closed")
)

type State int

const (
	Idle State = iota
	Streaming
)

func (s State) String() string {
	if s == Streaming {
		return "streaming"
	}
	return "idle"
}

// Session is one Idle -> Streaming -> Idle cycle.
type Session struct {
	StartedAt time.Time
	viewer    Viewer
	cancel    context.CancelFunc
	done      chan struct{}
}

// Status is a point-in-time view of the supervisor.
type Status struct {
	State     State     `json:"-"`
	StartedAt time.Time `json:"started_at,omitempty"`
	ViewerPID int       `json:"viewer_pid,omitempty"`
}

type Supervisor struct {
	camera    Camera
	launcher  Launcher
	heartbeat Heartbeat

	interval    time.Duration
	strict      bool
	stopTimeout time.Duration

	mu       sync.Mutex
	session  *Session
	starting bool
	closed   bool
	logger   *log.Entry
}

func NewSupervisor(cfg config.StreamConfig, camera Camera, launcher Launcher, heartbeat Heartbeat) *Supervisor {
	interval := cfg.Camera.KeepAliveInterval
	if interval <= 0 {
		interval = 2500 * time.Millisecond
	}
	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 3 * time.Second
	}

	return &Supervisor{
		camera:      camera,
		launcher:    launcher,
		heartbeat:   heartbeat,
		interval:    interval,
		strict:      cfg.Camera.Strict,
		stopTimeout: stopTimeout,
		logger:      log.WithField("module", "stream-supervisor"),
	}
}

// NewSupervisorFromConfig wires the HTTP camera, the viewer process and the
// UDP heartbeat described by cfg.
func NewSupervisorFromConfig(cfg config.StreamConfig) *Supervisor {
	camera := NewHTTPCamera(cfg.Camera.ManifestURL, cfg.Camera.Timeout)
	launcher := NewProcessLauncher(cfg.Viewer.Binary, cfg.Viewer.Args, cfg.Viewer.GracePeriod)
	addr := net.JoinHostPort(cfg.Camera.Host, strconv.Itoa(cfg.Camera.CommandPort))
	heartbeat := NewUDPHeartbeat(addr, cfg.Camera.KeepAliveMessage)
	return NewSupervisor(cfg, camera, launcher, heartbeat)
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Idle
	}
	return Streaming
}

func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Status{State: Idle}
	}
	return Status{
		State:     Streaming,
		StartedAt: s.session.StartedAt,
		ViewerPID: s.session.viewer.Pid(),
	}
}

// Start moves Idle -> Streaming. It returns once the viewer is launched; the
// keep-alive loop runs on its own context and is not tied to ctx. Calling
// Start while Streaming, or while another Start is in progress, is a no-op.
// The camera request and the launch run without holding the lock so State
// and Status stay readable.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSupervisorClosed
	}
	if s.session != nil || s.starting {
		s.mu.Unlock()
		s.logger.Info("stream already running, start ignored")
		return nil
	}
	s.starting = true
	s.mu.Unlock()

	viewer, err := s.launch(ctx)
	if err != nil {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
		return err
	}

	if err := s.commit(viewer); err != nil {
		if termErr := viewer.Terminate(); termErr != nil {
			s.logger.Warnf("terminating viewer after close: %v", termErr)
		}
		return err
	}

	s.logger.WithField("pid", viewer.Pid()).Info("stream started")
	return nil
}

// commit installs the session for a launched viewer and starts its
// keep-alive loop.
func (s *Supervisor) commit(viewer Viewer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if s.closed {
		return ErrSupervisorClosed
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.session = &Session{
		StartedAt: time.Now(),
		viewer:    viewer,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go s.keepAlive(loopCtx, s.session.done)

	recordSession("start")
	return nil
}

func (s *Supervisor) launch(ctx context.Context) (Viewer, error) {
	if err := s.camera.TriggerStream(ctx); err != nil {
		err = fmt.Errorf("%w: %v", ErrCameraUnreachable, err)
		if s.strict {
			return nil, err
		}
		s.logger.Warnf("%v, starting viewer anyway", err)
	}

	viewer, err := s.launcher.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrViewerLaunchFailed, err)
	}
	return viewer, nil
}

// Stop moves Streaming -> Idle: the session is detached under the lock, then
// the keep-alive loop is cancelled and awaited (bounded by the stop timeout)
// and the viewer is terminated. Stopping while Idle fails with
// ErrViewerTerminationFailed.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()

	if session == nil {
		return fmt.Errorf("%w: no viewer process running", ErrViewerTerminationFailed)
	}
	recordSession("stop")

	session.cancel()
	select {
	case <-session.done:
	case <-time.After(s.stopTimeout):
		s.logger.Warnf("keep-alive loop did not exit within %v, abandoning it", s.stopTimeout)
	case <-ctx.Done():
		s.logger.Warnf("keep-alive loop still running: %v", ctx.Err())
	}

	if err := session.viewer.Terminate(); err != nil {
		return fmt.Errorf("%w: %v", ErrViewerTerminationFailed, err)
	}

	s.logger.Infof("stream stopped after %v", time.Since(session.StartedAt).Round(time.Second))
	return nil
}

// Close tears down an active session at process exit. A Start still in
// progress is rolled back when it finishes; later Starts fail.
func (s *Supervisor) Close() {
	s.mu.Lock()
	s.closed = true
	idle := s.session == nil
	s.mu.Unlock()

	if idle {
		return
	}
	if err := s.Stop(context.Background()); err != nil {
		s.logger.Warnf("closing stream: %v", err)
	}
}

func (s *Supervisor) keepAlive(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.beat(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) beat(ctx context.Context) {
	beatCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	err := s.heartbeat.Beat(beatCtx)
	recordKeepAlive(err)
	if err != nil && ctx.Err() == nil {
		s.logger.Warnf("keep-alive failed: %v", err)
	}
}
