//go:build integration

package integration

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/efortin/splunk-wlm-demo/pkg/config"
	"github.com/efortin/splunk-wlm-demo/pkg/kubectl"
	"github.com/efortin/splunk-wlm-demo/pkg/kubernetes"
	"github.com/efortin/splunk-wlm-demo/pkg/runner"
	"github.com/efortin/splunk-wlm-demo/pkg/splunk"
	"github.com/efortin/splunk-wlm-demo/pkg/workflow"
)

func TestIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Demo Integration Suite")
}

// The suite needs a live cluster with a running Splunk pod and both kubectl
// and kubectl-splunk on the PATH. Point WLM_DEMO_TEST_POD at the pod to
// enable it.
var _ = Describe("Workload management demo", func() {
	var (
		cfg config.Config
		log *logrus.Entry
	)

	BeforeEach(func() {
		pod := os.Getenv("WLM_DEMO_TEST_POD")
		if pod == "" {
			Skip("WLM_DEMO_TEST_POD not set; skipping live-cluster suite")
		}
		namespace := envOrDefault("WLM_DEMO_TEST_NAMESPACE", "default")

		// Verify the pod is actually reachable before spending a full run.
		out, err := exec.Command("kubectl", "get", "pod", pod, "-n", namespace).CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "pod should exist: %s", string(out))

		waitSeconds, err := strconv.Atoi(envOrDefault("WLM_DEMO_TEST_WAIT_SECONDS", "60"))
		Expect(err).NotTo(HaveOccurred())

		cfg = config.Config{
			Pod:            pod,
			Namespace:      namespace,
			CPULimit:       config.DefaultCPULimit,
			MemoryLimit:    config.DefaultMemoryLimit,
			SplunkUser:     envOrDefault("WLM_DEMO_SPLUNK_USER", "admin"),
			SplunkPassword: envOrDefault("WLM_DEMO_SPLUNK_PASSWORD", "helloworld"),
			WaitSeconds:    waitSeconds,
			LogLevel:       "debug",
		}

		l := logrus.New()
		l.SetOutput(GinkgoWriter)
		l.SetLevel(logrus.DebugLevel)
		log = logrus.NewEntry(l)
	})

	Describe("Preflight", func() {
		It("should pass against the target pod", func() {
			clients, err := kubernetes.NewClients()
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			p := kubernetes.NewPreflight(clients.Kubernetes, clients.APIExtensions, log)
			Expect(p.Verify(ctx, cfg.Namespace, cfg.Pod, splunk.LabelSelector)).To(Succeed())
		})
	})

	Describe("Full run", func() {
		It("should complete the sequence and clean up after itself", func() {
			run := runner.NewExecRunner(log)
			splunkClient := splunk.New(run, cfg.Pod, cfg.Namespace, cfg.Auth(), log)
			kubectlClient := kubectl.New(run, cfg.Namespace, log)
			p := kubernetes.NewPreflight(nil, nil, log)

			seq := workflow.New(cfg, splunkClient, kubectlClient,
				func(context.Context) error { return p.CheckBinaries() }, log)

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
			defer cancel()

			report, err := seq.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Steps).To(HaveLen(12))
			GinkgoWriter.Printf("%s\n", report.Summary())

			// The display steps tolerate missing metrics-server, but the
			// gating steps must all be clean.
			for _, step := range report.Failed() {
				Expect(step.BestEffort).To(BeTrue(), "gating step %s failed", step.Name)
			}

			// Nothing the demo created may survive the run.
			pools, err := splunkClient.Rest(ctx, "GET", "/services/workloads/pools")
			Expect(err).NotTo(HaveOccurred())
			Expect(pools.Stdout).NotTo(ContainSubstring("high_priority_pool"))
			Expect(pools.Stdout).NotTo(ContainSubstring("low_priority_pool"))
		})
	})
})

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
