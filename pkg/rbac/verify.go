// Package rbac checks that the current user may perform the Kubernetes
// operations the demo's external tools are about to run.
package rbac

import (
	"context"
	"fmt"

	authv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// RequiredPermission is one verb the demo needs granted.
type RequiredPermission struct {
	APIGroup    string
	Resource    string
	Subresource string
	Verb        string
	Namespace   string // empty for cluster-scoped
}

func (p RequiredPermission) String() string {
	resource := p.Resource
	if p.Subresource != "" {
		resource += "/" + p.Subresource
	}
	if p.APIGroup != "" {
		resource += "." + p.APIGroup
	}
	scope := "cluster-scoped"
	if p.Namespace != "" {
		scope = "namespace=" + p.Namespace
	}
	return fmt.Sprintf("%s %s (%s)", p.Verb, resource, scope)
}

// GetRequiredPermissions lists what kubectl and kubectl-splunk need when the
// demo drives them: resolving the pod, exec'ing into it, and reading
// metrics. The cluster-scoped entries back the preflight checks themselves.
func GetRequiredPermissions(namespace string) []RequiredPermission {
	return []RequiredPermission{
		{APIGroup: "", Resource: "namespaces", Verb: "get", Namespace: ""},
		{APIGroup: "apiextensions.k8s.io", Resource: "customresourcedefinitions", Verb: "get", Namespace: ""},

		{APIGroup: "", Resource: "pods", Verb: "get", Namespace: namespace},
		{APIGroup: "", Resource: "pods", Verb: "list", Namespace: namespace},
		{APIGroup: "", Resource: "pods", Subresource: "exec", Verb: "create", Namespace: namespace},
		{APIGroup: "metrics.k8s.io", Resource: "pods", Verb: "get", Namespace: namespace},
	}
}

// VerifyPermissions runs a SelfSubjectAccessReview per required permission
// and returns the ones that were denied. The error covers review calls that
// failed outright, not denials.
func VerifyPermissions(ctx context.Context, clientset kubernetes.Interface, namespace string) ([]RequiredPermission, error) {
	var denied []RequiredPermission
	for _, perm := range GetRequiredPermissions(namespace) {
		allowed, err := CheckPermission(ctx, clientset, perm)
		if err != nil {
			return denied, fmt.Errorf("failed to check permission %q: %w", perm, err)
		}
		if !allowed {
			denied = append(denied, perm)
		}
	}
	return denied, nil
}

// CheckPermission verifies a single permission against the current subject.
func CheckPermission(ctx context.Context, clientset kubernetes.Interface, perm RequiredPermission) (bool, error) {
	sar := &authv1.SelfSubjectAccessReview{
		Spec: authv1.SelfSubjectAccessReviewSpec{
			ResourceAttributes: &authv1.ResourceAttributes{
				Verb:        perm.Verb,
				Group:       perm.APIGroup,
				Resource:    perm.Resource,
				Subresource: perm.Subresource,
				Namespace:   perm.Namespace,
			},
		},
	}

	result, err := clientset.AuthorizationV1().SelfSubjectAccessReviews().Create(ctx, sar, metav1.CreateOptions{})
	if err != nil {
		return false, err
	}
	return result.Status.Allowed, nil
}
