package build

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/apkship/internal/instrumentation"
	"github.com/teemow/apkship/internal/logging"
)

// ExitError reports a build that finished with a non-zero exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("build exited with status %d", e.Code)
}

// interruptGrace is how long a cancelled build may take to exit after the
// interrupt before it is killed.
const interruptGrace = 10 * time.Second

// Runner starts the build command.
type Runner struct {
	// Command is the program followed by its fixed arguments
	Command []string

	// Marker is the stdout substring that announces a finished build
	Marker string

	// ArtifactPath must exist when Marker is seen for the artifact to be ready
	ArtifactPath string

	// Dir is the working directory of the build; empty means the current one
	Dir string

	// Stdin is connected to the build, so interactive builds keep working
	Stdin io.Reader

	// Stdout and Stderr receive the echoed build output; nil discards it
	Stdout io.Writer
	Stderr io.Writer

	Metrics *instrumentation.Metrics
	Logger  logging.Logger
}

// Build is a running build process.
type Build struct {
	cmd     *exec.Cmd
	ready   chan Artifact
	streams sync.WaitGroup
	started time.Time
	span    trace.Span
	ctx     context.Context
	metrics *instrumentation.Metrics
	logger  logging.Logger

	waitOnce sync.Once
	code     int
	err      error
}

// Start spawns the build with args appended to the command. Cancelling ctx
// interrupts the process and kills it if it is still running after a grace
// period.
func (r *Runner) Start(ctx context.Context, args []string) (*Build, error) {
	if len(r.Command) == 0 {
		return nil, fmt.Errorf("build command is required")
	}
	logger := logging.OrDefault(r.Logger)

	argv := append(append([]string{}, r.Command[1:]...), args...)
	cmd := exec.CommandContext(ctx, r.Command[0], argv...)
	cmd.Dir = r.Dir
	cmd.Stdin = r.Stdin
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = interruptGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open build stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open build stderr: %w", err)
	}

	ctx, span := instrumentation.StartSpan(ctx, "build.run",
		instrumentation.NewSpanAttributeBuilder().WithArtifact(r.ArtifactPath).Build()...)

	if err := cmd.Start(); err != nil {
		instrumentation.SetSpanError(span, err)
		span.End()
		r.Metrics.RecordBuildRun(ctx, instrumentation.StatusError, 0)
		return nil, fmt.Errorf("failed to start build %q: %w", strings.Join(r.Command, " "), err)
	}
	logger.Info("build started", "command", strings.Join(append([]string{r.Command[0]}, argv...), " "), "pid", cmd.Process.Pid)

	b := &Build{
		cmd:     cmd,
		ready:   make(chan Artifact, 1),
		started: time.Now(),
		span:    span,
		ctx:     ctx,
		metrics: r.Metrics,
		logger:  logger,
	}

	w := newWatcher(r.Marker, r.ArtifactPath)
	b.streams.Add(2)
	go func() {
		defer b.streams.Done()
		defer close(b.ready)
		b.pump(stdout, r.Stdout, func(line string) {
			if artifact, ok := w.observe(line); ok {
				logger.Info("build artifact ready", logging.Path(artifact.Path), "size", artifact.Size)
				instrumentation.AddSpanEvent(span, "artifact.ready")
				b.ready <- artifact
			}
		})
	}()
	go func() {
		defer b.streams.Done()
		b.pump(stderr, r.Stderr, nil)
	}()

	return b, nil
}

// pump copies src to dst line by line, handing each line to observe.
func (b *Build) pump(src io.Reader, dst io.Writer, observe func(string)) {
	if dst == nil {
		dst = io.Discard
	}
	reader := bufio.NewReader(src)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if _, werr := io.WriteString(dst, line); werr != nil {
				b.logger.Debug("failed to echo build output", logging.Err(werr))
			}
			if observe != nil {
				observe(strings.TrimRight(line, "\r\n"))
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				b.logger.Debug("build output stream ended", logging.Err(err))
			}
			return
		}
	}
}

// Ready delivers the artifact at most once and is closed when the build's
// stdout ends.
func (b *Build) Ready() <-chan Artifact {
	return b.ready
}

// Wait waits for the output streams to drain and the process to exit, and
// returns its exit code. A non-zero exit is not an error; err is set only
// when the process could not be waited on.
func (b *Build) Wait() (int, error) {
	b.waitOnce.Do(func() {
		b.streams.Wait()
		err := b.cmd.Wait()
		duration := time.Since(b.started)

		var exitErr *exec.ExitError
		switch {
		case err == nil:
			b.code = 0
		case errors.As(err, &exitErr):
			b.code = exitErr.ExitCode()
			if b.code < 0 {
				// terminated by a signal
				b.code = 1
			}
		default:
			b.code = -1
			b.err = fmt.Errorf("failed to wait for build: %w", err)
		}

		status := instrumentation.StatusSuccess
		if b.code != 0 {
			status = instrumentation.StatusError
		}
		b.metrics.RecordBuildRun(b.ctx, status, duration)

		b.span.SetAttributes(attribute.Int(instrumentation.SpanAttrExitCode, b.code))
		if b.code != 0 {
			instrumentation.SetSpanError(b.span, &ExitError{Code: b.code})
		} else {
			instrumentation.SetSpanSuccess(b.span)
		}
		b.span.End()

		b.logger.Info("build finished", logging.ExitCode(b.code), logging.KeyDuration, duration.Round(time.Millisecond).String())
	})
	return b.code, b.err
}
