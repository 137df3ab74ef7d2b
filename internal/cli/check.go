package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-probe/internal/logger"
	"github.com/samvad-hq/samvad-probe/internal/prober"
	"github.com/samvad-hq/samvad-probe/pkg/httpclient"
	"github.com/samvad-hq/samvad-probe/pkg/targets"
)

const (
	defaultTargetsFile = "./configs/targets.yaml"
	defaultTimeout     = 10 * time.Second
	userAgent          = "samvad-probe-cli/1.0"
)

type checkFlags struct {
	targetsFile string
	timeout     time.Duration
	noColor     bool
	only        []string
}

func newCheckCmd(s *settings) *cobra.Command {
	flags := checkFlags{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe every target once and print a summary table",
		Example: `  probe check
  probe check --targets ./configs/targets.yaml --timeout 5s
  probe check --only api-health --no-color`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, s, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.targetsFile, "targets", "t", defaultTargetsFile, "targets file (yaml or json)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", defaultTimeout, "per-request timeout")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	cmd.Flags().StringSliceVar(&flags.only, "only", nil, "probe only the given target ids")
	return cmd
}

func runCheck(cmd *cobra.Command, s *settings, flags checkFlags) error {
	if flags.timeout <= 0 {
		return fmt.Errorf("--timeout must be positive")
	}

	reg, err := targets.LoadRegistry(flags.targetsFile)
	if err != nil {
		return err
	}
	list, err := selectTargets(reg, flags.only)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no targets in %s", flags.targetsFile)
	}

	clientOpts := []httpclient.Option{
		httpclient.WithTimeout(flags.timeout),
		httpclient.WithUserAgent(userAgent),
	}
	if s.transport != nil {
		clientOpts = append(clientOpts, httpclient.WithTransport(s.transport))
	}
	svc := prober.NewService(httpclient.NewRestyClient(clientOpts...), nil, nil, logger.NopLogger{})

	report, err := svc.Run(cmd.Context(), list)
	if report != nil {
		out := cmd.OutOrStdout()
		colored := !flags.noColor && os.Getenv("NO_COLOR") == "" && isTerminal(out)
		if werr := writeReport(out, report, newPalette(colored)); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	if !report.AllUp() {
		return ErrTargetsDown
	}
	return nil
}

func selectTargets(reg *targets.Registry, ids []string) ([]targets.Target, error) {
	if len(ids) == 0 {
		return reg.Targets(), nil
	}
	out := make([]targets.Target, 0, len(ids))
	for _, id := range ids {
		t, ok := reg.TargetByID(id)
		if !ok {
			return nil, fmt.Errorf("unknown target %q", id)
		}
		out = append(out, t)
	}
	return out, nil
}
