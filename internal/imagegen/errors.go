package imagegen

import (
	"errors"
	"strings"
)

// Kind classifies why a generation attempt did not produce an image.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation means the inbound request was rejected before any
	// process was started.
	KindValidation
	// KindToolNotInstalled means the interpreter or the mflux module could
	// not be found.
	KindToolNotInstalled
	// KindExternalTool means the tool ran and reported a failure.
	KindExternalTool
	// KindMissingArtifact means the tool exited 0 without writing an image.
	KindMissingArtifact
	KindTimeout
	KindCanceled
	// KindWorkspace means the scratch directory for the run could not be
	// created.
	KindWorkspace
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindToolNotInstalled:
		return "tool_not_installed"
	case KindExternalTool:
		return "external_tool"
	case KindMissingArtifact:
		return "missing_artifact"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	case KindWorkspace:
		return "workspace"
	default:
		return "unknown"
	}
}

// Error is the classified failure returned by ParseRequest and Execute.
type Error struct {
	Kind Kind
	// Msg is safe to hand back to API clients.
	Msg string
	// Stderr holds the tool's diagnostic output when it was captured.
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classification carried by err, KindUnknown when err is
// not a *Error.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindUnknown
}

func validationError(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Err: err}
}

func notInstalledError(stderr string, err error) *Error {
	return &Error{
		Kind:   KindToolNotInstalled,
		Msg:    "mflux not installed. Run: pip install mflux",
		Stderr: stderr,
		Err:    err,
	}
}

func externalToolError(stderr string, err error) *Error {
	detail := strings.TrimSpace(stderr)
	if detail == "" && err != nil {
		detail = err.Error()
	}
	return &Error{Kind: KindExternalTool, Msg: "mflux error: " + detail, Stderr: stderr, Err: err}
}

func missingArtifactError(err error) *Error {
	return &Error{Kind: KindMissingArtifact, Msg: "mflux exited successfully but produced no image", Err: err}
}

func timeoutError(err error) *Error {
	return &Error{Kind: KindTimeout, Msg: "Image generation timed out", Err: err}
}

func canceledError(err error) *Error {
	return &Error{Kind: KindCanceled, Msg: "Image generation canceled", Err: err}
}

func workspaceError(err error) *Error {
	return &Error{Kind: KindWorkspace, Msg: "failed to prepare image workspace", Err: err}
}
