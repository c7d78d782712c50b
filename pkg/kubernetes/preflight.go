package kubernetes

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextensionsclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/efortin/splunk-wlm-demo/pkg/rbac"
)

// RequiredBinaries are the external tools every demo run shells out to.
var RequiredBinaries = []string{"kubectl", "kubectl-splunk"}

// splunkOperatorCRD is the Splunk Operator resource whose presence hints at
// an operator-managed deployment.
const splunkOperatorCRD = "standalones.enterprise.splunk.com"

const podPollInterval = 2 * time.Second

// Preflight verifies the demo's environment before any side effect happens.
// The binary checks always run; the cluster checks run only when a client is
// configured.
type Preflight struct {
	clientset     kubernetes.Interface
	apiextensions apiextensionsclientset.Interface
	log           *logrus.Entry

	// podReadyTimeout bounds how long CheckPodReady keeps polling.
	podReadyTimeout time.Duration

	lookPath func(string) (string, error)
}

// NewPreflight creates a new Preflight. Both clientsets may be nil, which
// skips the cluster checks.
func NewPreflight(clientset kubernetes.Interface, apiext apiextensionsclientset.Interface, log *logrus.Entry) *Preflight {
	return &Preflight{
		clientset:       clientset,
		apiextensions:   apiext,
		log:             log,
		podReadyTimeout: 30 * time.Second,
		lookPath:        exec.LookPath,
	}
}

// Verify runs every check: required binaries first, then the cluster-side
// environment. selector is the label selector the target pod is expected to
// carry; a mismatch is only warned about.
func (p *Preflight) Verify(ctx context.Context, namespace, pod, selector string) error {
	if err := p.CheckBinaries(); err != nil {
		return err
	}
	if p.clientset == nil {
		p.log.Debug("cluster checks skipped: no kubernetes client configured")
		return nil
	}
	if err := p.CheckNamespace(ctx, namespace); err != nil {
		return err
	}
	if err := p.CheckPodReady(ctx, namespace, pod); err != nil {
		return err
	}
	p.checkPodLabels(ctx, namespace, pod, selector)
	p.checkPermissions(ctx, namespace)
	p.checkOperatorCRD(ctx)
	return nil
}

// CheckBinaries verifies the required external tools are present in PATH.
func (p *Preflight) CheckBinaries() error {
	for _, bin := range RequiredBinaries {
		path, err := p.lookPath(bin)
		if err != nil {
			return fmt.Errorf("required tool %s not found in PATH: %w", bin, err)
		}
		p.log.WithFields(logrus.Fields{"tool": bin, "path": path}).Debug("found required tool")
	}
	return nil
}

// CheckNamespace verifies the namespace exists.
func (p *Preflight) CheckNamespace(ctx context.Context, namespace string) error {
	if _, err := p.clientset.CoreV1().Namespaces().Get(ctx, namespace, metav1.GetOptions{}); err != nil {
		if errors.IsNotFound(err) {
			return fmt.Errorf("namespace %s not found", namespace)
		}
		return fmt.Errorf("failed to get namespace %s: %w", namespace, err)
	}
	return nil
}

// CheckPodReady verifies the target pod exists and reports Ready, polling
// briefly to ride out a container restart. A missing pod fails immediately.
func (p *Preflight) CheckPodReady(ctx context.Context, namespace, name string) error {
	var lastPhase corev1.PodPhase
	err := wait.PollUntilContextTimeout(ctx, podPollInterval, p.podReadyTimeout, true, func(ctx context.Context) (bool, error) {
		pod, err := p.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			if errors.IsNotFound(err) {
				return false, fmt.Errorf("pod %s/%s not found", namespace, name)
			}
			return false, err
		}
		lastPhase = pod.Status.Phase
		return isPodReady(pod), nil
	})
	if err != nil {
		return fmt.Errorf("pod %s/%s is not ready (last phase %q): %w", namespace, name, lastPhase, err)
	}
	return nil
}

func isPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

// checkPodLabels warns when the pod does not carry the selector the splunk
// plugin filters on. Relabeled deployments still work because the pod is
// always named explicitly.
func (p *Preflight) checkPodLabels(ctx context.Context, namespace, name, selector string) {
	pod, err := p.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return
	}
	sel, err := labels.Parse(selector)
	if err != nil {
		return
	}
	if !sel.Matches(labels.Set(pod.Labels)) {
		p.log.WithFields(logrus.Fields{
			"pod":      name,
			"selector": selector,
		}).Warn("pod does not match the expected label selector")
	}
}

// checkPermissions warns about RBAC permissions the demo's tools would be
// denied. Warning only: kubectl may authenticate as a different user than
// this process, so a denial here is a hint, not proof.
func (p *Preflight) checkPermissions(ctx context.Context, namespace string) {
	denied, err := rbac.VerifyPermissions(ctx, p.clientset, namespace)
	if err != nil {
		p.log.WithError(err).Warn("could not verify RBAC permissions")
		return
	}
	for _, perm := range denied {
		p.log.WithField("permission", perm.String()).Warn("current user lacks a permission the demo relies on")
	}
}

// checkOperatorCRD warns when the Splunk Operator CRD is absent or not yet
// established. The demo also runs against hand-managed Splunk pods, so this
// never fails the run.
func (p *Preflight) checkOperatorCRD(ctx context.Context) {
	if p.apiextensions == nil {
		return
	}
	crd, err := p.apiextensions.ApiextensionsV1().CustomResourceDefinitions().Get(ctx, splunkOperatorCRD, metav1.GetOptions{})
	if err != nil {
		p.log.WithField("crd", splunkOperatorCRD).Warn("splunk operator CRD not found; assuming a hand-managed deployment")
		return
	}
	for _, condition := range crd.Status.Conditions {
		if condition.Type == apiextensionsv1.Established && condition.Status == apiextensionsv1.ConditionTrue {
			p.log.WithField("crd", splunkOperatorCRD).Debug("splunk operator CRD established")
			return
		}
	}
	p.log.WithField("crd", splunkOperatorCRD).Warn("splunk operator CRD exists but is not established")
}
