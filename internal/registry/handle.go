// Package registry implements the Process Registries (C6): one generic,
// idempotent-start registry type, instantiated three times for functions,
// aggregations, and consumption APIs (§4.6). Each started worker is a plain
// OS child process -- the argv/env construction style is grounded on
// pkg/micro_runner/handlers.ExecHandler, generalized here to stream
// stdout/stderr line-by-line instead of buffering to completion.
package registry

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dcmcore/dcm/internal/core"
)

// LineSink receives one output line at a time, tagged with the process ID
// and stream, preserving the order lines were written in.
type LineSink func(id string, stderr bool, line string)

// handle is the concrete core.ProcessHandle for one OS child process.
type handle struct {
	spec core.ProcessSpec
	log  zerolog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	running  bool
	exited   chan struct{}
	crashed  bool
	stopping bool
}

func newHandle(spec core.ProcessSpec, log zerolog.Logger) *handle {
	return &handle{spec: spec, log: log}
}

func (h *handle) ID() string             { return h.spec.ID }
func (h *handle) Kind() core.ProcessKind { return h.spec.Kind }
func (h *handle) Spec() core.ProcessSpec { return h.spec }

func (h *handle) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// start launches the child process and wires its stdout/stderr to sink,
// one full line at a time, preserving write order per stream.
func (h *handle) start(sink LineSink) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		// Idempotent: starting an already-running process is a no-op,
		// not an error (§4.6).
		return nil
	}

	cmd := exec.Command(h.spec.Command, h.spec.Args...)
	cmd.Dir = h.spec.Dir
	if len(h.spec.Env) > 0 {
		env := make([]string, 0, len(h.spec.Env))
		for k, v := range h.spec.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return core.NewProcessError("attach stdout pipe", err).WithResource(h.spec.ID)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return core.NewProcessError("attach stderr pipe", err).WithResource(h.spec.ID)
	}

	if err := cmd.Start(); err != nil {
		return core.NewProcessError("start worker process", err).WithResource(h.spec.ID)
	}

	h.cmd = cmd
	h.running = true
	h.crashed = false
	h.stopping = false
	h.exited = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go streamLines(&wg, h.spec.ID, false, stdout, sink)
	go streamLines(&wg, h.spec.ID, true, stderr, sink)

	go func() {
		wg.Wait()
		err := cmd.Wait()

		h.mu.Lock()
		h.running = false
		h.crashed = err != nil && !h.stopping
		h.mu.Unlock()
		close(h.exited)

		if err != nil {
			h.log.Warn().Err(err).Str("process_id", h.spec.ID).
				Msg("<DCM> worker process exited with error")
		}
	}()

	return nil
}

// streamLines reads r one newline-delimited line at a time and hands each
// to sink, so concurrent stdout/stderr from one process never interleave
// within themselves, only across streams.
func streamLines(wg *sync.WaitGroup, id string, stderr bool, r io.Reader, sink LineSink) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if sink != nil {
			sink(id, stderr, scanner.Text())
		}
	}
}

// Stop sends a graceful termination signal and waits up to
// core.ProcessStopGrace, then escalates to Kill and waits up to
// core.ProcessKillGrace before giving up (§4.6).
func (h *handle) Stop(ctx context.Context) error {
	h.mu.Lock()
	if !h.running || h.cmd == nil {
		h.mu.Unlock()
		return nil
	}
	cmd := h.cmd
	exited := h.exited
	h.stopping = true
	h.mu.Unlock()

	_ = cmd.Process.Signal(interruptSignal())

	select {
	case <-exited:
		return nil
	case <-time.After(core.ProcessStopGrace):
	case <-ctx.Done():
		return ctx.Err()
	}

	_ = cmd.Process.Kill()

	select {
	case <-exited:
		return nil
	case <-time.After(core.ProcessKillGrace):
		return core.NewProcessError("worker process did not exit after kill", nil).WithResource(h.spec.ID)
	case <-ctx.Done():
		return ctx.Err()
	}
}
