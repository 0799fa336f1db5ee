package services

import (
	"context"
	"strings"

	"github.com/orgtreehq/orgtree/internal/access"
	"github.com/orgtreehq/orgtree/pkg/metrics"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func trimmed(value string) string {
	return strings.TrimSpace(value)
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// evaluateAccess runs the evaluator and records the decision outcome metric.
func evaluateAccess(ctx context.Context, evaluator *access.Evaluator, actor access.Identity, orgID string) (access.Decision, error) {
	decision, err := evaluator.Evaluate(ctx, actor, orgID)
	switch {
	case err != nil:
		metrics.AccessDecisions.WithLabelValues("error").Inc()
	case decision.HasAccess:
		metrics.AccessDecisions.WithLabelValues("allow").Inc()
	default:
		metrics.AccessDecisions.WithLabelValues("deny").Inc()
	}
	return decision, err
}
