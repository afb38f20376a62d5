package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/easierdata/ipfs-stac/pkg/config"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// ErrDaemonStart is returned when a daemon was launched but its control API
// never became ready, or when the process could not be launched at all.
var ErrDaemonStart = errors.New("daemon: start failed")

// State describes the lifecycle of the managed node process.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ProbeFunc reports whether the node's control API answers. A nil error
// means ready.
type ProbeFunc func(ctx context.Context) error

// Option adjusts a Controller beyond what config carries.
type Option func(*Controller)

// WithArgs overrides the arguments passed to the daemon binary.
func WithArgs(args ...string) Option {
	return func(c *Controller) { c.args = args }
}

// WithProcessName overrides the executable name looked for when scanning
// for an externally started daemon.
func WithProcessName(name string) Option {
	return func(c *Controller) { c.procName = name }
}

// WithProcessDetection toggles the scan for an already-running daemon
// process before spawning a new one.
func WithProcessDetection(enabled bool) Option {
	return func(c *Controller) { c.detect = enabled }
}

// shutdownGrace is how long a signalled process gets before being killed.
const shutdownGrace = 5 * time.Second

// Controller owns the lifecycle of a local node daemon: spawning the
// process, waiting for its control API to answer, and terminating it. The
// caller keeps full ownership; nothing is started implicitly.
//
// State moves Stopped -> Starting -> Running on Start and back to Stopped
// on Shutdown or a failed start.
type Controller struct {
	binary   string
	args     []string
	procName string
	detect   bool
	probe    ProbeFunc
	timeout  time.Duration
	poll     time.Duration

	mu     sync.Mutex
	state  atomic.Int32
	cmd    *exec.Cmd
	waitCh chan error
	owned  bool
}

// New builds a Controller from the client configuration. probe decides
// readiness; it is typically the node client's ID call.
//
// An empty DaemonBinary puts the controller in attach-only mode: Start
// spawns nothing and merely waits for an externally managed node to come
// up.
func New(cfg *config.Config, probe ProbeFunc, opts ...Option) *Controller {
	if probe == nil {
		probe = func(context.Context) error {
			return errors.New("daemon: no readiness probe configured")
		}
	}
	timeouts := cfg.Timeouts.WithDefaults()
	c := &Controller{
		binary:  cfg.DaemonBinary,
		args:    []string{"daemon"},
		detect:  true,
		probe:   probe,
		timeout: timeouts.DaemonStart,
		poll:    timeouts.DaemonPoll,
	}
	if c.binary != "" {
		c.procName = filepath.Base(c.binary)
	} else {
		c.procName = "ipfs"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old != s {
		zap.L().Debug("daemon state changed",
			zap.Stringer("from", old),
			zap.Stringer("to", s))
	}
}

// Start brings the node daemon up and blocks until its control API answers
// or the start timeout elapses. Calling Start on a running controller is a
// no-op. When the API is already answering, the existing daemon is adopted
// without spawning a process.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	if c.State() == StateRunning {
		zap.L().Debug("daemon already running")
		return nil
	}
	c.setState(StateStarting)

	if c.probe(ctx) == nil {
		zap.L().Debug("node api already answering, adopting external daemon")
		c.setState(StateRunning)
		return nil
	}

	external := c.detect && c.processRunning(ctx)
	if external {
		zap.L().Debug("daemon process already present, waiting for its api",
			zap.String("process", c.procName))
	} else if c.binary != "" {
		if err := c.spawn(); err != nil {
			c.setState(StateStopped)
			return err
		}
	} else {
		zap.L().Debug("no daemon binary configured, waiting for external node")
	}

	if err := c.awaitReady(ctx); err != nil {
		c.stopOwned()
		c.setState(StateStopped)
		return err
	}
	c.setState(StateRunning)
	return nil
}

func (c *Controller) spawn() error {
	cmd := exec.Command(c.binary, c.args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: spawn %s: %v", ErrDaemonStart, c.binary, err)
	}
	c.cmd = cmd
	c.owned = true
	c.waitCh = make(chan error, 1)
	go func() { c.waitCh <- cmd.Wait() }()

	zap.L().Debug("spawned daemon process",
		zap.String("binary", c.binary),
		zap.Int("pid", cmd.Process.Pid))
	return nil
}

func (c *Controller) awaitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: node api did not answer within %s", ErrDaemonStart, c.timeout)
		case err := <-c.waitCh:
			c.owned = false
			c.cmd = nil
			c.waitCh = nil
			if err != nil {
				return fmt.Errorf("%w: process exited during startup: %v", ErrDaemonStart, err)
			}
			return fmt.Errorf("%w: process exited during startup", ErrDaemonStart)
		case <-ticker.C:
			if err := c.probe(ctx); err == nil {
				return nil
			}
		}
	}
}

// Shutdown terminates the daemon process and resets the state to Stopped.
// A spawned process is signalled first and killed after a grace period; a
// daemon found by process scan is terminated through the process table.
// Shutting down a stopped controller is a no-op.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	if c.State() == StateStopped {
		zap.L().Debug("daemon already stopped")
		return nil
	}

	var err error
	if c.owned {
		c.stopOwned()
	} else if c.detect {
		err = c.terminateByName(ctx)
	}
	c.setState(StateStopped)
	return err
}

func (c *Controller) stopOwned() {
	if !c.owned || c.cmd == nil || c.cmd.Process == nil {
		return
	}
	pid := c.cmd.Process.Pid
	if err := c.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = c.cmd.Process.Kill()
	} else {
		select {
		case <-c.waitCh:
		case <-time.After(shutdownGrace):
			zap.L().Debug("daemon ignored interrupt, killing", zap.Int("pid", pid))
			_ = c.cmd.Process.Kill()
			<-c.waitCh
		}
	}
	zap.L().Debug("daemon process stopped", zap.Int("pid", pid))
	c.owned = false
	c.cmd = nil
	c.waitCh = nil
}

func (c *Controller) processRunning(ctx context.Context) bool {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false
	}
	for _, p := range procs {
		if name, err := p.NameWithContext(ctx); err == nil && strings.EqualFold(name, c.procName) {
			return true
		}
	}
	return false
}

func (c *Controller) terminateByName(ctx context.Context) error {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return fmt.Errorf("daemon: list processes: %w", err)
	}
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || !strings.EqualFold(name, c.procName) {
			continue
		}
		zap.L().Debug("terminating daemon process",
			zap.Int32("pid", p.Pid),
			zap.String("name", name))
		if err := p.TerminateWithContext(ctx); err != nil {
			if err := p.KillWithContext(ctx); err != nil {
				return fmt.Errorf("daemon: kill pid %d: %w", p.Pid, err)
			}
		}
	}
	return nil
}
