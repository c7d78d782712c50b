package splunk

import (
	"context"
	"fmt"
	"strings"
)

// Workload management endpoints on the Splunk management API.
const (
	poolsPath = "/services/workloads/pools"
	rulesPath = "/services/workloads/rules"
)

// Pool is a workload pool creation payload.
type Pool struct {
	Name      string
	CPUWeight int
	MemWeight int
	Category  string
	// DefaultCategoryPool marks the pool as its category's default. A
	// category needs one before searches can be scheduled into it.
	DefaultCategoryPool bool
}

// FormData renders the pool as ordered form fields for the rest mode.
func (p Pool) FormData() []string {
	data := []string{
		"name=" + p.Name,
		fmt.Sprintf("cpu_weight=%d", p.CPUWeight),
		fmt.Sprintf("mem_weight=%d", p.MemWeight),
		"category=" + p.Category,
	}
	if p.DefaultCategoryPool {
		data = append(data, "default_category_pool=1")
	}
	return data
}

// Validate checks if the pool definition is valid
func (p Pool) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("pool name cannot be empty")
	}
	if p.CPUWeight < 1 || p.CPUWeight > 100 {
		return fmt.Errorf("pool %s: cpu weight must be between 1 and 100", p.Name)
	}
	if p.MemWeight < 1 || p.MemWeight > 100 {
		return fmt.Errorf("pool %s: mem weight must be between 1 and 100", p.Name)
	}
	if p.Category == "" {
		return fmt.Errorf("pool %s: category cannot be empty", p.Name)
	}
	return nil
}

// Rule routes searches matching a predicate into a pool.
type Rule struct {
	Name      string
	Predicate string
	Pool      string
	Order     int
}

// FormData renders the rule as ordered form fields for the rest mode.
func (r Rule) FormData() []string {
	return []string{
		"name=" + r.Name,
		"predicate=" + r.Predicate,
		"workload_pool=" + r.Pool,
		fmt.Sprintf("order=%d", r.Order),
	}
}

// Validate checks if the rule definition is valid
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name cannot be empty")
	}
	if r.Predicate == "" {
		return fmt.Errorf("rule %s: predicate cannot be empty", r.Name)
	}
	if r.Pool == "" {
		return fmt.Errorf("rule %s: workload pool cannot be empty", r.Name)
	}
	return nil
}

// DemoPools returns the two fixed pools the demo provisions: a heavy one
// that is also the search category's default, and a light one.
func DemoPools() []Pool {
	return []Pool{
		{Name: "high_priority_pool", CPUWeight: 70, MemWeight: 70, Category: "search", DefaultCategoryPool: true},
		{Name: "low_priority_pool", CPUWeight: 30, MemWeight: 30, Category: "search"},
	}
}

// DemoRules returns the two fixed rules routing searches into the demo
// pools.
func DemoRules() []Rule {
	return []Rule{
		{Name: "high_priority_rule", Predicate: "index=_internal", Pool: "high_priority_pool", Order: 1},
		{Name: "low_priority_rule", Predicate: "app=search", Pool: "low_priority_pool", Order: 2},
	}
}

// EnableWorkloadManagement turns workload management on through the in-pod
// CLI.
func (c *Client) EnableWorkloadManagement(ctx context.Context) error {
	if _, err := c.Exec(ctx, SplunkBin, "enable", "workload-management", "-auth", c.auth); err != nil {
		return fmt.Errorf("failed to enable workload management: %w", err)
	}
	c.log.Info("workload management enabled")
	return nil
}

// DisableWorkloadManagement turns workload management back off.
func (c *Client) DisableWorkloadManagement(ctx context.Context) error {
	if _, err := c.Exec(ctx, SplunkBin, "disable", "workload-management", "-auth", c.auth); err != nil {
		return fmt.Errorf("failed to disable workload management: %w", err)
	}
	c.log.Info("workload management disabled")
	return nil
}

// CreatePool creates a workload pool.
func (c *Client) CreatePool(ctx context.Context, p Pool) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, err := c.Rest(ctx, "POST", poolsPath, p.FormData()...); err != nil {
		return fmt.Errorf("failed to create pool %s: %w", p.Name, err)
	}
	c.log.WithField("pool", p.Name).Info("created workload pool")
	return nil
}

// DeletePool deletes a workload pool by name.
func (c *Client) DeletePool(ctx context.Context, name string) error {
	if _, err := c.Rest(ctx, "DELETE", poolsPath+"/"+name); err != nil {
		return fmt.Errorf("failed to delete pool %s: %w", name, err)
	}
	c.log.WithField("pool", name).Info("deleted workload pool")
	return nil
}

// CreateRule creates a workload rule.
func (c *Client) CreateRule(ctx context.Context, r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if _, err := c.Rest(ctx, "POST", rulesPath, r.FormData()...); err != nil {
		return fmt.Errorf("failed to create rule %s: %w", r.Name, err)
	}
	c.log.WithField("rule", r.Name).Info("created workload rule")
	return nil
}

// DeleteRule deletes a workload rule by name.
func (c *Client) DeleteRule(ctx context.Context, name string) error {
	if _, err := c.Rest(ctx, "DELETE", rulesPath+"/"+name); err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", name, err)
	}
	c.log.WithField("rule", name).Info("deleted workload rule")
	return nil
}

// WorkloadStatus returns the raw workload-management status output for
// display.
func (c *Client) WorkloadStatus(ctx context.Context) (string, error) {
	res, err := c.Exec(ctx, SplunkBin, "show", "workload-management-status", "-auth", c.auth)
	if err != nil {
		return "", fmt.Errorf("failed to query workload management status: %w", err)
	}
	return strings.TrimSpace(res.Stdout), nil
}
