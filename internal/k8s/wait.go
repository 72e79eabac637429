package k8s

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/jfellner/k3seed/internal/errdefs"
)

// DefaultReadyTimeout bounds the node readiness poll.
const DefaultReadyTimeout = 2 * time.Minute

const pollInterval = 5 * time.Second

// WaitForNodeReady polls until the named node reports the Ready condition,
// or the timeout elapses. API errors during the poll are treated as
// not-ready yet, since the apiserver itself is still coming up during
// bootstrap.
func (c *Client) WaitForNodeReady(ctx context.Context, name string, timeout time.Duration) error {
	condition := fmt.Sprintf("node %s Ready", name)

	err := wait.PollUntilContextTimeout(ctx, pollInterval, timeout, true,
		func(ctx context.Context) (bool, error) {
			node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
			if err != nil {
				return false, nil
			}
			return isNodeReady(node), nil
		})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("wait for %s: %w", condition, ctx.Err())
		}
		return &errdefs.TimeoutError{Condition: condition, Limit: timeout}
	}
	return nil
}

func isNodeReady(node *corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady && cond.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
