package imagegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds a single generation, wall clock.
	DefaultTimeout = 300 * time.Second

	// waitDelay bounds how long Wait keeps draining stdout/stderr after the
	// process was killed.
	waitDelay = 5 * time.Second

	promptLogLimit = 50
)

// Result is a successfully generated image.
type Result struct {
	Image    []byte
	MIMEType string
	Width    int
	Height   int
}

// Generator is implemented by Executor; HTTP handlers depend on it so tests
// can substitute a fake.
type Generator interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

type Options struct {
	Command Command
	Timeout time.Duration
	// WorkDir is the parent of the per-call workspaces. Empty means the OS
	// temp directory.
	WorkDir string
	Logger  zerolog.Logger
}

// Executor runs the external tool once per request. It holds no per-call
// state, so one Executor serves concurrent callers.
type Executor struct {
	command Command
	timeout time.Duration
	workDir string
	logger  zerolog.Logger

	commandContext func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func NewExecutor(opts Options) *Executor {
	cmd := opts.Command
	def := DefaultCommand()
	if cmd.Python == "" {
		cmd.Python = def.Python
	}
	if cmd.Module == "" {
		cmd.Module = def.Module
	}
	if cmd.Model == "" {
		cmd.Model = def.Model
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		command:        cmd,
		timeout:        timeout,
		workDir:        opts.WorkDir,
		logger:         opts.Logger.With().Str("component", "executor").Logger(),
		commandContext: exec.CommandContext,
	}
}

// Execute runs the tool for req and returns the produced PNG. Failures are
// returned as *Error. The workspace is removed before Execute returns, on
// every path.
func (e *Executor) Execute(ctx context.Context, req Request) (Result, error) {
	ws, err := NewWorkspace(e.workDir)
	if err != nil {
		e.logger.Error().Err(err).Str("kind", KindWorkspace.String()).Msg("failed to create workspace")
		return Result{}, workspaceError(err)
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			e.logger.Warn().Err(cerr).Msg("failed to remove workspace")
		}
	}()

	data, err := e.run(ctx, req, ws.OutputPath())
	if err != nil {
		return Result{}, err
	}
	return Result{Image: data, MIMEType: MIMEType, Width: req.Width, Height: req.Height}, nil
}

func (e *Executor) run(ctx context.Context, req Request, outputPath string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := e.commandContext(runCtx, e.command.Python, e.command.Args(req, outputPath)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	log := e.logger.With().
		Int("width", req.Width).
		Int("height", req.Height).
		Int("steps", req.Steps).
		Logger()

	start := time.Now()
	if err := cmd.Start(); err != nil {
		gerr := classifyStartError(err)
		if runCtx.Err() != nil {
			gerr = classifyWaitError(runCtx, err, "")
		}
		log.Error().Err(err).Str("kind", gerr.Kind.String()).Str("python", e.command.Python).Msg("failed to launch mflux")
		return nil, gerr
	}
	log.Info().Int("pid", cmd.Process.Pid).Msgf("generating: %q", truncate(req.Prompt, promptLogLimit))

	waitErr := cmd.Wait()
	elapsed := time.Since(start)
	if waitErr != nil {
		gerr := classifyWaitError(runCtx, waitErr, stderr.String())
		log.Error().Err(waitErr).
			Str("kind", gerr.Kind.String()).
			Dur("duration", elapsed).
			Str("stderr", truncate(strings.TrimSpace(stderr.String()), 2048)).
			Msg("mflux failed")
		return nil, gerr
	}
	if out := strings.TrimSpace(stdout.String()); out != "" {
		log.Debug().Str("stdout", truncate(out, 2048)).Msg("mflux output")
	}

	data, err := os.ReadFile(outputPath)
	if err == nil && len(data) == 0 {
		err = errors.New("output file is empty")
	}
	if err != nil {
		log.Error().Err(err).Dur("duration", elapsed).Str("kind", KindMissingArtifact.String()).Msg("mflux produced no image")
		return nil, missingArtifactError(err)
	}

	log.Info().Dur("duration", elapsed).Int("bytes", len(data)).Msg("image generated")
	return data, nil
}

func classifyStartError(err error) *Error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return notInstalledError("", err)
	}
	gerr := notInstalledError("", err)
	gerr.Msg = fmt.Sprintf("failed to launch mflux: %v", err)
	return gerr
}

// classifyWaitError checks the context before the exit status: a killed
// process also exits non-zero.
func classifyWaitError(ctx context.Context, err error, stderr string) *Error {
	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return timeoutError(err)
	case errors.Is(ctxErr, context.Canceled):
		return canceledError(err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && strings.Contains(stderr, "No module named") {
		return notInstalledError(stderr, err)
	}
	return externalToolError(stderr, err)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
