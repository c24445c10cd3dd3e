// Package tuitest drives a compiled terminal program through a pseudo
// terminal so integration tests can script keystrokes and assert on the
// rendered output.
package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

const (
	defaultCols     = 120
	defaultRows     = 32
	defaultDeadline = 5 * time.Second
)

// Keystroke is one scripted input. Wait is how long to pause before the
// bytes are written; zero writes immediately.
type Keystroke struct {
	Wait  time.Duration
	Press []byte
}

// Options describes the program under test and the script to replay.
type Options struct {
	Argv        []string
	WorkDir     string
	ExtraEnv    []string
	Cols        int
	Rows        int
	Script      []Keystroke
	Deadline    time.Duration
	OKExitCodes []int
	// TolerateInterrupt accepts a SIGINT exit, for scripts that end the
	// program with Ctrl+C.
	TolerateInterrupt bool
}

// Capture holds everything the program wrote to the terminal.
type Capture struct {
	Output  []byte
	Renders []Render
	Elapsed time.Duration
}

// Record starts the program in a PTY sized per Options, replays the
// script, and returns the captured terminal stream once it exits.
func Record(ctx context.Context, opts Options) (*Capture, error) {
	if len(opts.Argv) == 0 {
		return nil, errors.New("tuitest: argv is required")
	}
	cols, rows := opts.Cols, opts.Rows
	if cols <= 0 {
		cols = defaultCols
	}
	if rows <= 0 {
		rows = defaultRows
	}
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = defaultDeadline
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	cmd := exec.CommandContext(ctx, opts.Argv[0], opts.Argv[1:]...)
	cmd.Dir = opts.WorkDir
	cmd.Env = mergeEnv(opts.ExtraEnv)

	okCodes := map[int]struct{}{0: {}}
	for _, code := range opts.OKExitCodes {
		okCodes[code] = struct{}{}
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("tuitest: start program: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	var output bytes.Buffer
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		answer := newQueryAnswerer(ptmx)
		buf := make([]byte, 4096)
		for {
			n, readErr := ptmx.Read(buf)
			if n > 0 {
				answer(buf[:n])
				output.Write(buf[:n])
			}
			if readErr != nil {
				return
			}
		}
	}()

	start := time.Now()
	for _, stroke := range opts.Script {
		if stroke.Wait > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("tuitest: deadline hit mid-script: %w", ctx.Err())
			case <-time.After(stroke.Wait):
			}
		}
		if len(stroke.Press) > 0 {
			if _, err := ptmx.Write(stroke.Press); err != nil {
				return nil, fmt.Errorf("tuitest: write keystroke: %w", err)
			}
		}
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	select {
	case err := <-exited:
		if err != nil && !exitAcceptable(err, okCodes, opts.TolerateInterrupt) {
			return nil, fmt.Errorf("tuitest: program exited with error: %w", err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("tuitest: program did not exit in time: %w", ctx.Err())
	}

	// Close the PTY so the reader sees EOF and finishes draining.
	_ = ptmx.Close()
	<-drained

	raw := output.Bytes()
	return &Capture{
		Output:  raw,
		Renders: splitRenders(raw),
		Elapsed: time.Since(start),
	}, nil
}

func exitAcceptable(err error, okCodes map[int]struct{}, tolerateInterrupt bool) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if _, ok := okCodes[exitErr.ExitCode()]; ok {
			return true
		}
	}
	return tolerateInterrupt && strings.Contains(err.Error(), "signal: interrupt")
}

func mergeEnv(extra []string) []string {
	env := append(os.Environ(), extra...)
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}

// Terminal programs probe the cursor position and palette on startup
// and block until something answers. newQueryAnswerer returns a
// stateful scanner that replies to those probes as a plain terminal
// would, buffering a tail so probes split across reads still match.
func newQueryAnswerer(w io.Writer) func(chunk []byte) {
	replies := []struct{ probe, reply []byte }{
		{[]byte("\x1b[6n"), []byte("\x1b[1;1R")},
		{[]byte("\x1b]10;?\x07"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x07")},
		{[]byte("\x1b]10;?\x1b\\"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x1b\\")},
		{[]byte("\x1b]11;?\x07"), []byte("\x1b]11;rgb:0000/0000/0000\x07")},
		{[]byte("\x1b]11;?\x1b\\"), []byte("\x1b]11;rgb:0000/0000/0000\x1b\\")},
	}
	var pending []byte
	return func(chunk []byte) {
		pending = append(pending, chunk...)
		for {
			matched := false
			for _, r := range replies {
				if idx := bytes.Index(pending, r.probe); idx >= 0 {
					pending = pending[idx+len(r.probe):]
					_, _ = w.Write(r.reply)
					matched = true
				}
			}
			if !matched {
				break
			}
		}
		if len(pending) > 256 {
			pending = pending[len(pending)-64:]
		}
	}
}

var (
	// KeyEnter submits the focused input.
	KeyEnter = []byte{'\r'}
	// KeyCtrlC asks the program to quit.
	KeyCtrlC = []byte{3}
	// KeyEsc dismisses the focused overlay.
	KeyEsc = []byte{27}
)
