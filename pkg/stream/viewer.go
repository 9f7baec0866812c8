package stream

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/apex/log"
)

var errViewerExited = errors.New("viewer process already exited")

// Viewer is a running viewer process tracked by its handle.
type Viewer interface {
	Pid() int
	Terminate() error
	Done() <-chan struct{}
}

// Launcher starts a viewer process without waiting for it.
type Launcher interface {
	Launch() (Viewer, error)
}

// ProcessLauncher runs the viewer binary (ffplay by default) as a child
// process that outlives the request which started it.
type ProcessLauncher struct {
	binary      string
	args        []string
	gracePeriod time.Duration
	logger      *log.Entry
}

func NewProcessLauncher(binary string, args []string, gracePeriod time.Duration) *ProcessLauncher {
	return &ProcessLauncher{
		binary:      binary,
		args:        args,
		gracePeriod: gracePeriod,
		logger:      log.WithField("module", "viewer"),
	}
}

func (l *ProcessLauncher) Launch() (Viewer, error) {
	cmd := exec.Command(l.binary, l.args...)
	// own process group: a terminal Ctrl-C reaches the relay, not the viewer
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &viewerProcess{
		cmd:         cmd,
		done:        make(chan struct{}),
		gracePeriod: l.gracePeriod,
		logger:      l.logger.WithField("pid", cmd.Process.Pid),
	}
	go p.wait()

	p.logger.Infof("viewer started: %s", l.binary)
	return p, nil
}

type viewerProcess struct {
	cmd         *exec.Cmd
	done        chan struct{}
	gracePeriod time.Duration
	logger      *log.Entry
}

// wait reaps the process so it never lingers as a zombie.
func (p *viewerProcess) wait() {
	err := p.cmd.Wait()
	if err != nil {
		p.logger.Infof("viewer exited: %v", err)
	} else {
		p.logger.Info("viewer exited cleanly")
	}
	close(p.done)
}

func (p *viewerProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *viewerProcess) Done() <-chan struct{} {
	return p.done
}

// Terminate sends SIGTERM and kills the process if it is still alive after
// the grace period.
func (p *viewerProcess) Terminate() error {
	select {
	case <-p.done:
		return errViewerExited
	default:
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		select {
		case <-p.done:
			return errViewerExited
		default:
			return err
		}
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(p.gracePeriod):
	}

	p.logger.Warn("viewer ignored SIGTERM, killing")
	if err := p.cmd.Process.Kill(); err != nil {
		return err
	}
	<-p.done
	return nil
}
