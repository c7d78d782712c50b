// Package kubectl wraps the kubectl CLI for the read-only queries the demo
// makes. Everything returned here is display data; callers never branch on
// it.
package kubectl

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/efortin/splunk-wlm-demo/pkg/runner"
)

// Binary is the kubectl executable the demo shells out to.
const Binary = "kubectl"

// Client runs kubectl against a fixed namespace.
type Client struct {
	runner    runner.Runner
	namespace string
	log       *logrus.Entry
}

// New creates a new Client
func New(r runner.Runner, namespace string, log *logrus.Entry) *Client {
	return &Client{
		runner:    r,
		namespace: namespace,
		log:       log,
	}
}

// PodUsage is one pod's row from `kubectl top pod`.
type PodUsage struct {
	PodName string
	CPU     resource.Quantity
	Memory  resource.Quantity
	Raw     string
}

// String renders the usage for the demo log, falling back to the raw line
// when the row did not parse.
func (u PodUsage) String() string {
	if u.PodName == "" || (u.CPU.IsZero() && u.Memory.IsZero()) {
		return u.Raw
	}
	return fmt.Sprintf("%s cpu=%s memory=%s (~%s)",
		u.PodName, u.CPU.String(), u.Memory.String(), humanize.IBytes(uint64(u.Memory.Value())))
}

// TopPod queries resource usage for a single pod through the metrics API.
func (c *Client) TopPod(ctx context.Context, pod string) (PodUsage, error) {
	res, err := c.runner.Run(ctx, Binary, "top", "pod", pod, "-n", c.namespace, "--no-headers")
	if err != nil {
		return PodUsage{}, fmt.Errorf("failed to query pod metrics: %w", err)
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return PodUsage{}, fmt.Errorf("kubectl top returned no usage for pod %s", pod)
	}
	return parseTopLine(res.Stdout), nil
}

// parseTopLine extracts NAME CPU(cores) MEMORY(bytes) from the first
// non-empty line. Unparseable rows keep the raw text; a display row must
// never fail the run.
func parseTopLine(out string) PodUsage {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		usage := PodUsage{Raw: line}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return usage
		}
		usage.PodName = fields[0]
		if cpu, err := resource.ParseQuantity(fields[1]); err == nil {
			usage.CPU = cpu
		}
		if mem, err := resource.ParseQuantity(fields[2]); err == nil {
			usage.Memory = mem
		}
		return usage
	}
	return PodUsage{}
}
