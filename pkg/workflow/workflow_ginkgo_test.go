package workflow_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/efortin/splunk-wlm-demo/pkg/config"
	"github.com/efortin/splunk-wlm-demo/pkg/kubectl"
	"github.com/efortin/splunk-wlm-demo/pkg/runner"
	"github.com/efortin/splunk-wlm-demo/pkg/splunk"
	"github.com/efortin/splunk-wlm-demo/pkg/workflow"
)

func TestWorkflow(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Workflow Test Suite")
}

// happyHook scripts output for the calls whose display steps would
// otherwise report empty results.
func happyHook(name string, args []string) (runner.Result, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	switch {
	case name == "kubectl":
		return runner.Result{Stdout: "splunk-cm-0   964m   5800Mi\n"}, nil
	case strings.Contains(line, "ps aux"):
		return runner.Result{Stdout: "splunk 2201 splunkd search\n"}, nil
	case strings.Contains(line, "workload-management-status"):
		return runner.Result{Stdout: "workload management: enabled\n"}, nil
	default:
		return runner.Result{}, nil
	}
}

var _ = Describe("Sequencer", func() {
	var (
		fake *runner.Fake
		seq  *workflow.Sequencer
	)

	BeforeEach(func() {
		fake = &runner.Fake{RunHook: happyHook}

		cfg := config.Config{
			Pod:            "splunk-cm-0",
			Namespace:      "default",
			CPULimit:       "500m",
			MemoryLimit:    "1Gi",
			SplunkUser:     "admin",
			SplunkPassword: "helloworld",
			WaitSeconds:    1,
			LogLevel:       "info",
		}
		l := logrus.New()
		l.SetOutput(io.Discard)
		log := logrus.NewEntry(l)

		seq = workflow.New(cfg,
			splunk.New(fake, cfg.Pod, cfg.Namespace, cfg.Auth(), log),
			kubectl.New(fake, cfg.Namespace, log),
			func(context.Context) error { return nil },
			log)
		seq.Sleep = func(context.Context, time.Duration) {}
	})

	Describe("Run", func() {
		It("should issue fifteen external calls on a clean pass", func() {
			report, err := seq.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.CallCount()).To(Equal(15))
			Expect(report.Steps).To(HaveLen(12))
		})

		It("should open by enabling and close by disabling workload management", func() {
			_, err := seq.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			lines := fake.CommandLines()
			Expect(lines[0]).To(ContainSubstring("enable workload-management"))
			Expect(lines[len(lines)-1]).To(ContainSubstring("disable workload-management"))
		})

		It("should delete rules before pools", func() {
			_, err := seq.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			lines := fake.CommandLines()
			Expect(lines[10]).To(ContainSubstring("DELETE /services/workloads/rules/"))
			Expect(lines[12]).To(ContainSubstring("DELETE /services/workloads/pools/"))
		})

		It("should finish even when the search launches fail", func() {
			fake.StartHook = func(string, []string) error {
				return fmt.Errorf("spawn failed")
			}

			report, err := seq.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Failed()).To(HaveLen(1))
			Expect(report.Summary()).To(ContainSubstring(workflow.StepLaunchSearches + "!"))
		})
	})

	Describe("Teardown", func() {
		It("should attempt every removal even when some fail", func() {
			fake.RunHook = func(name string, args []string) (runner.Result, error) {
				if strings.Contains(strings.Join(args, " "), "/services/workloads/pools/") {
					return runner.Result{}, fmt.Errorf("404 not found")
				}
				return runner.Result{}, nil
			}

			err := seq.Teardown(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("high_priority_pool"))
			Expect(err.Error()).To(ContainSubstring("low_priority_pool"))

			// Rules, pools and the disable call all ran.
			Expect(fake.CallCount()).To(Equal(5))
		})
	})
})
