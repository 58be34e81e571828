package notification

import (
	"context"
	"net/url"
	"strings"
)

type originKey struct{}

// WithOrigin records the caller's origin (scheme://host) for link
// generation during this request.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, strings.TrimRight(origin, "/"))
}

func OriginFrom(ctx context.Context) (string, bool) {
	origin, ok := ctx.Value(originKey{}).(string)
	return origin, ok && origin != ""
}

// Links builds same-origin customer links. They are not persisted.
type Links struct {
	origin string
}

func NewLinks(origin string) Links {
	return Links{origin: strings.TrimRight(origin, "/")}
}

func (l Links) Track(orderID string) string {
	return l.origin + "/track/" + url.PathEscape(orderID)
}

func (l Links) Feedback(orderID string) string {
	return l.origin + "/feedback/" + url.PathEscape(orderID)
}

func (l Links) Retry(orderID string) string {
	return l.origin + "/checkout/retry/" + url.PathEscape(orderID)
}
