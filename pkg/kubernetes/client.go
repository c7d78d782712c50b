// Package kubernetes verifies the cluster-side environment before the demo
// touches anything.
package kubernetes

import (
	"fmt"
	"time"

	apiextensionsclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// apiTimeout bounds every API server round trip made by the checks.
const apiTimeout = 10 * time.Second

// Clients bundles the typed clientsets the preflight checks need.
type Clients struct {
	Kubernetes    kubernetes.Interface
	APIExtensions apiextensionsclientset.Interface
}

// NewClients builds clientsets from the in-cluster config when running
// inside a pod, otherwise from the usual kubeconfig loading rules
// (KUBECONFIG, then ~/.kube/config).
func NewClients() (*Clients, error) {
	cfg, err := buildRestConfig()
	if err != nil {
		return nil, err
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	apiext, err := apiextensionsclientset.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create apiextensions client: %w", err)
	}

	return &Clients{Kubernetes: clientset, APIExtensions: apiext}, nil
}

func buildRestConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		cfg.Timeout = apiTimeout
		return cfg, nil
	}

	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	cfg.Timeout = apiTimeout
	return cfg, nil
}
