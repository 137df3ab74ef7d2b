// Package cli implements the probe command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitSuccess     = 0
	ExitTargetsDown = 1
	ExitUsageError  = 2
)

// ErrTargetsDown is returned by check when at least one target is down.
var ErrTargetsDown = errors.New("one or more targets are down")

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Option customizes the command tree.
type Option func(*settings)

type settings struct {
	transport http.RoundTripper
	stdout    io.Writer
	stderr    io.Writer
}

// WithTransport sends probe requests through rt instead of the network.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *settings) { s.transport = rt }
}

// WithOutput redirects command output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(s *settings) {
		s.stdout = stdout
		s.stderr = stderr
	}
}

// NewRootCmd builds the probe command tree.
func NewRootCmd(info BuildInfo, opts ...Option) *cobra.Command {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	root := &cobra.Command{
		Use:   "probe",
		Short: "Check HTTP endpoints from the command line",
		Long: `probe performs one pass over a targets file, evaluates each target's
expectations and prints the result. It exits non-zero when a target is down.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if s.stdout != nil {
		root.SetOut(s.stdout)
	}
	if s.stderr != nil {
		root.SetErr(s.stderr)
	}

	root.AddCommand(newCheckCmd(&s))
	root.AddCommand(newVersionCmd(info))
	return root
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, info BuildInfo, args []string, opts ...Option) int {
	root := NewRootCmd(info, opts...)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrTargetsDown):
		return ExitTargetsDown
	default:
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return ExitUsageError
	}
}
