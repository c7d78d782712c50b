package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/efortin/splunk-wlm-demo/pkg/config"
	"github.com/efortin/splunk-wlm-demo/pkg/kubectl"
	"github.com/efortin/splunk-wlm-demo/pkg/kubernetes"
	"github.com/efortin/splunk-wlm-demo/pkg/runner"
	"github.com/efortin/splunk-wlm-demo/pkg/splunk"
	"github.com/efortin/splunk-wlm-demo/pkg/workflow"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "wlm-demo",
		Short: "Splunk workload management demo against a single pod",
		Long: `wlm-demo drives a fixed workload management scenario on one Splunk pod:
it enables WLM, creates two pools and two routing rules, launches two
background searches, waits for them to land in their pools, shows resource
usage and WLM status, then deletes everything it created and disables WLM.

Every operation is delegated to kubectl and the kubectl-splunk plugin; both
must be installed and pointed at the right cluster. The first failure aborts
the run; use the cleanup subcommand to remove leftovers afterwards.`,
		SilenceErrors: true,
		RunE:          runDemo,
	}

	c.PersistentFlags().StringP("pod", "p", "", "Splunk pod to drive (required)")
	c.PersistentFlags().StringP("namespace", "n", config.DefaultNamespace, "Kubernetes namespace of the pod")
	c.PersistentFlags().StringP("cpu-limit", "c", config.DefaultCPULimit, "CPU limit placeholder (accepted but not applied)")
	c.PersistentFlags().StringP("memory-limit", "m", config.DefaultMemoryLimit, "memory limit placeholder (accepted but not applied)")

	c.CompletionOptions.DisableDefaultCmd = true
	c.AddCommand(newCleanupCmd())
	c.AddCommand(newVersionCmd())
	return c
}

func runDemo(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	// From here on failures are operational, not usage mistakes.
	cmd.SilenceUsage = true

	log := initLogger(cfg.LogLevel)
	seq, err := newSequencer(cfg, log, true)
	if err != nil {
		return err
	}

	report, err := seq.Run(cmd.Context())
	if err != nil {
		log.Info(report.Summary())
		return err
	}
	log.Info(report.Summary())
	return nil
}

// newSequencer wires the exec runner and both CLI clients behind a
// Sequencer. withCluster selects the full preflight; cleanup passes false to
// only check that the binaries are installed.
func newSequencer(cfg config.Config, log *logrus.Entry, withCluster bool) (*workflow.Sequencer, error) {
	run := runner.NewExecRunner(log)
	splunkClient := splunk.New(run, cfg.Pod, cfg.Namespace, cfg.Auth(), log)
	kubectlClient := kubectl.New(run, cfg.Namespace, log)

	preflight, err := buildPreflight(cfg, log, withCluster)
	if err != nil {
		return nil, err
	}
	return workflow.New(cfg, splunkClient, kubectlClient, preflight, log), nil
}

func buildPreflight(cfg config.Config, log *logrus.Entry, withCluster bool) (func(ctx context.Context) error, error) {
	if !withCluster || cfg.SkipClusterCheck {
		p := kubernetes.NewPreflight(nil, nil, log)
		return func(context.Context) error { return p.CheckBinaries() }, nil
	}

	clients, err := kubernetes.NewClients()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig (set WLM_DEMO_SKIP_CLUSTER_CHECK=true to run without cluster checks): %w", err)
	}
	p := kubernetes.NewPreflight(clients.Kubernetes, clients.APIExtensions, log)
	return func(ctx context.Context) error {
		return p.Verify(ctx, cfg.Namespace, cfg.Pod, splunk.LabelSelector)
	}, nil
}

func initLogger(level string) *logrus.Entry {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return logrus.NewEntry(l)
}

// SetVersion wires build metadata injected through ldflags into the
// --version flag and the version subcommand.
func SetVersion(version, commit, date string) {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
}

func Execute() error {
	return rootCmd.Execute()
}
