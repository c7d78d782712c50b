package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/efortin/splunk-wlm-demo/pkg/config"
	"github.com/efortin/splunk-wlm-demo/pkg/kubernetes"
)

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove demo pools and rules left behind by an aborted run",
		Long: `cleanup deletes the demo's workload rules and pools and disables workload
management on the pod. Unlike the main run it keeps going when an object is
already gone, so it is safe to call after any partial run.`,
		RunE: runCleanup,
	}
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cmd.SilenceUsage = true

	log := initLogger(cfg.LogLevel)
	if err := kubernetes.NewPreflight(nil, nil, log).CheckBinaries(); err != nil {
		return err
	}

	seq, err := newSequencer(cfg, log, false)
	if err != nil {
		return err
	}
	if err := seq.Teardown(cmd.Context()); err != nil {
		return fmt.Errorf("cleanup incomplete: %w", err)
	}
	log.Info("cleanup finished")
	return nil
}
