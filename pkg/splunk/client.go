// Package splunk drives the kubectl-splunk plugin against one Splunk pod.
// The plugin's exec mode runs commands inside the pod; its rest mode issues
// requests against the pod's management API. This package is the only place
// that knows the plugin's command-line contract.
package splunk

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/efortin/splunk-wlm-demo/pkg/runner"
)

const (
	// Binary is the kubectl plugin every Splunk-facing call goes through.
	Binary = "kubectl-splunk"

	// SplunkBin is the CLI path inside the target pod.
	SplunkBin = "/opt/splunk/bin/splunk"

	// LabelSelector pins the plugin to the operator-managed cluster manager
	// pods. Fixed on purpose; this is a demo, not a general-purpose client.
	LabelSelector = "app.kubernetes.io/name=cluster-manager"
)

// Client targets a single pod in a single namespace.
type Client struct {
	runner    runner.Runner
	pod       string
	namespace string
	auth      string
	log       *logrus.Entry
}

// New creates a new Client. auth is the user:password pair passed to the
// in-pod splunk CLI.
func New(r runner.Runner, pod, namespace, auth string, log *logrus.Entry) *Client {
	return &Client{
		runner:    r,
		pod:       pod,
		namespace: namespace,
		auth:      auth,
		log:       log,
	}
}

// targetArgs returns the pod-selection arguments shared by both modes.
func (c *Client) targetArgs() []string {
	return []string{
		"--namespace", c.namespace,
		"--selector", LabelSelector,
		"--pod", c.pod,
	}
}

// Exec runs a command inside the pod through the plugin's exec mode.
func (c *Client) Exec(ctx context.Context, argv ...string) (runner.Result, error) {
	args := append(c.targetArgs(), "exec", "--")
	args = append(args, argv...)
	return c.runner.Run(ctx, Binary, args...)
}

// Rest issues a management API request through the plugin's rest mode. Data
// pairs are form fields already encoded as key=value.
func (c *Client) Rest(ctx context.Context, method, path string, data ...string) (runner.Result, error) {
	args := append(c.targetArgs(), "rest", method, path)
	for _, d := range data {
		args = append(args, "--data", d)
	}
	args = append(args, "--insecure")
	return c.runner.Run(ctx, Binary, args...)
}
