package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	multierror "github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/types"
)

// Unit is a started piece of the pool. Stop asks the unit to finish after
// its current iteration and returns without waiting for it.
type Unit interface {
	Name() string
	Start() error
	Stop() error
	Wait() error
}

// Executor spawns the units of an infrastructure role.
type Executor interface {
	Spawn(role plugin.Role, index int) (Unit, error)
}

// Task runs a Runner on its own goroutine.
type Task struct {
	name   string
	runner types.Runner
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

var _ Unit = (*Task)(nil)

func NewTask(name string, runner types.Runner) *Task {
	return &Task{
		name:   name,
		runner: runner,
		done:   make(chan struct{}),
	}
}

func (t *Task) Name() string {
	return t.name
}

func (t *Task) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go func() {
		defer close(t.done)
		if err := t.runner.Run(ctx); err != nil {
			log.WithField("module", t.name).Errorf("Terminated: %s", err)
			t.err = err
		}
	}()
	return nil
}

func (t *Task) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}

func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// ThreadExecutor runs the units of a role as goroutines of this process.
type ThreadExecutor struct {
	registry *plugin.Registry
}

var _ Executor = (*ThreadExecutor)(nil)

func NewThreadExecutor(registry *plugin.Registry) *ThreadExecutor {
	return &ThreadExecutor{registry: registry}
}

func (e *ThreadExecutor) Spawn(role plugin.Role, index int) (Unit, error) {
	factory, err := e.registry.LookupRole(role)
	if err != nil {
		return nil, err
	}
	runner, err := factory(index)
	if err != nil {
		return nil, err
	}
	return NewTask(fmt.Sprintf("%s-%d", role, index), runner), nil
}

// ProcessExecutor runs every unit in a child process started as
// "<Command...> worker <role> --index <n> <Flags...>". The child is expected
// to run the role until it receives SIGTERM.
type ProcessExecutor struct {
	Command []string
	Flags   []string
	Stdout  io.Writer
	Stderr  io.Writer
}

var _ Executor = (*ProcessExecutor)(nil)

// NewProcessExecutor re-executes the current binary with flags.
func NewProcessExecutor(flags []string) (*ProcessExecutor, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return &ProcessExecutor{
		Command: []string{self},
		Flags:   flags,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}, nil
}

func (e *ProcessExecutor) Spawn(role plugin.Role, index int) (Unit, error) {
	if len(e.Command) == 0 {
		return nil, fmt.Errorf("process executor has no command")
	}
	args := append([]string{}, e.Command[1:]...)
	args = append(args, "worker", string(role), "--index", strconv.Itoa(index))
	args = append(args, e.Flags...)
	cmd := exec.Command(e.Command[0], args...)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	return &Process{name: fmt.Sprintf("%s-%d", role, index), cmd: cmd}, nil
}

// Process is a unit running in a child process.
type Process struct {
	name string
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

var _ Unit = (*Process)(nil)

func (p *Process) Name() string {
	return p.name
}

func (p *Process) Start() error {
	if err := p.cmd.Start(); err != nil {
		return err
	}
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		p.err = p.cmd.Wait()
	}()
	return nil
}

func (p *Process) Stop() error {
	if p.done == nil {
		return nil
	}
	select {
	case <-p.done:
		return nil
	default:
	}
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

func (p *Process) Wait() error {
	if p.done == nil {
		return fmt.Errorf("%s is not started", p.name)
	}
	<-p.done
	return p.err
}

func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Pool keeps the started units.
type Pool struct {
	units []Unit
	lock  sync.Mutex
}

func NewPool() *Pool {
	return &Pool{units: make([]Unit, 0)}
}

func (p *Pool) Start(u Unit) error {
	if err := u.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %s", u.Name(), err)
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	p.units = append(p.units, u)
	return nil
}

// Spawn starts n units of a role.
func (p *Pool) Spawn(e Executor, role plugin.Role, n int) error {
	for ix := 0; ix < n; ix++ {
		u, err := e.Spawn(role, ix)
		if err != nil {
			return err
		}
		if err := p.Start(u); err != nil {
			return err
		}
	}
	return nil
}

// Stop asks every unit to stop. It does not wait.
func (p *Pool) Stop() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	var res *multierror.Error
	for _, u := range p.units {
		if err := u.Stop(); err != nil {
			res = multierror.Append(res, err)
		}
	}
	return res.ErrorOrNil()
}

// Wait blocks until every unit has returned.
func (p *Pool) Wait() error {
	p.lock.Lock()
	units := append([]Unit{}, p.units...)
	p.lock.Unlock()
	var res *multierror.Error
	for _, u := range units {
		if err := u.Wait(); err != nil {
			res = multierror.Append(res, fmt.Errorf("%s: %w", u.Name(), err))
		}
	}
	return res.ErrorOrNil()
}

// Done is closed as soon as any unit returns.
func (p *Pool) Done() <-chan struct{} {
	p.lock.Lock()
	units := append([]Unit{}, p.units...)
	p.lock.Unlock()
	done := make(chan struct{})
	once := sync.Once{}
	for _, u := range units {
		go func(u Unit) {
			u.Wait()
			once.Do(func() { close(done) })
		}(u)
	}
	return done
}

func (p *Pool) Len() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.units)
}
