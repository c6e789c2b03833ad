package obs

import "context"

type routeKey struct{}

// WithRoutePattern records the matched chi pattern so handlers outside the
// router can label metrics and spans with it.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routeKey{}, pattern)
}

// RoutePatternFromContext returns the pattern stored by WithRoutePattern.
func RoutePatternFromContext(ctx context.Context) string {
	pattern, _ := ctx.Value(routeKey{}).(string)
	return pattern
}
