package splunk

import (
	"context"
	"fmt"
	"strings"
)

// DemoSearches are the SPL queries launched to exercise the demo pools.
// Both scan _internal, which is populated on any Splunk instance, so the
// routing rules always have something to classify.
var DemoSearches = []string{
	"index=_internal | head 10000 | stats count by sourcetype",
	"index=_internal | head 10000 | stats count by component",
}

// LaunchSearch dispatches a search as a detached job. -detach true makes
// splunkd own the search server-side, so it keeps running after the exec
// session ends; the launch itself is backgrounded locally and completion is
// never checked. The fixed wait that follows is the only synchronization.
func (c *Client) LaunchSearch(ctx context.Context, spl string) error {
	args := append(c.targetArgs(), "exec", "--")
	args = append(args, SplunkBin, "search", spl, "-detach", "true", "-auth", c.auth)
	if err := c.runner.Start(ctx, Binary, args...); err != nil {
		return fmt.Errorf("failed to launch search %q: %w", spl, err)
	}
	c.log.WithField("search", spl).Info("launched background search")
	return nil
}

// ListSearchProcesses returns the pod's running splunkd search processes,
// raw, for display. The pipeline exits non-zero when no search is left
// running, which the caller treats as a display gap rather than a failure.
func (c *Client) ListSearchProcesses(ctx context.Context) (string, error) {
	res, err := c.Exec(ctx, "sh", "-c", "ps aux | grep splunkd | grep search | grep -v grep")
	if err != nil {
		return "", fmt.Errorf("failed to list search processes: %w", err)
	}
	return strings.TrimSpace(res.Stdout), nil
}
