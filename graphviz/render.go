// Package graphviz renders DOT descriptions to image files with the Graphviz
// "dot" program.
package graphviz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
)

// DefaultBinary is the program used when no other is configured.
const DefaultBinary = "dot"

// Common output formats. Any format the installed dot supports is accepted.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
	FormatPDF = "pdf"
)

var (
	// ErrBinaryNotFound is returned when the dot program is not on PATH.
	ErrBinaryNotFound = errors.New("graphviz binary not found")
	// ErrInvalidFormat is returned for output formats that are not plain names.
	ErrInvalidFormat = errors.New("invalid output format")
	// ErrDestinationRequired is returned when no output path is given.
	ErrDestinationRequired = errors.New("output path is required")
	// ErrRenderFailed is returned when dot exits with a non-zero status.
	ErrRenderFailed = errors.New("graphviz render failed")
)

var formatPattern = regexp.MustCompile(`^[a-z0-9]+(:[a-z0-9]+)*$`)

// Describer is anything that can describe itself in the DOT language, such
// as *fsm.Machine and *fsm.Table.
type Describer interface {
	ToDot() string
}

// Renderer runs dot.
type Renderer struct {
	binary string
	logger *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithBinary sets the dot program, either a name looked up on PATH or a path.
func WithBinary(binary string) Option {
	return func(r *Renderer) {
		if binary != "" {
			r.binary = binary
		}
	}
}

// WithLogger sets the logger for command tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRenderer creates a renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		binary: DefaultBinary,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Render writes the description rendered as format to dest. The description
// is passed on stdin, equivalent to `dot -T<format> -o<dest>`.
func (r *Renderer) Render(ctx context.Context, description, format, dest string) error {
	if !formatPattern.MatchString(format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	if dest == "" {
		return ErrDestinationRequired
	}

	path, err := exec.LookPath(r.binary)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, r.binary, err)
	}

	var stderr string

	code, err := newCommand(ctx, path, "-T"+format, "-o"+dest).
		setStdinString(description).
		setStderrObserver(func(out []byte) {
			stderr = strings.TrimSpace(string(out))
		}).
		run(r.logger)
	if err != nil {
		return err
	}

	if code != 0 {
		return fmt.Errorf("%w: exit status %d: %s", ErrRenderFailed, code, stderr)
	}

	r.logger.DebugContext(ctx, "Rendered graph", "format", format, "dest", dest)

	return nil
}

// RenderGraph renders d.
func (r *Renderer) RenderGraph(ctx context.Context, d Describer, format, dest string) error {
	return r.Render(ctx, d.ToDot(), format, dest)
}

// Render renders with the default renderer.
func Render(ctx context.Context, description, format, dest string) error {
	return NewRenderer().Render(ctx, description, format, dest)
}

// Version returns the first line dot prints for -V, e.g.
// "dot - graphviz version 2.43.0 (0)".
func (r *Renderer) Version(ctx context.Context) (string, error) {
	path, err := exec.LookPath(r.binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, r.binary, err)
	}

	var out string

	// dot prints its version on stderr.
	code, err := newCommand(ctx, path, "-V").
		appendEnv("LC_ALL", "C").
		setStderrObserver(func(b []byte) {
			out = strings.TrimSpace(string(b))
		}).
		run(r.logger)
	if err != nil {
		return "", err
	}

	if code != 0 {
		return "", fmt.Errorf("%w: exit status %d: %s", ErrRenderFailed, code, out)
	}

	first, _, _ := strings.Cut(out, "\n")

	return first, nil
}
