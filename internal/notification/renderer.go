package notification

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"crmgateway/internal/domain"
)

type TemplateStore interface {
	FindActiveByName(ctx context.Context, name string) (*domain.Template, error)
}

// Renderer resolves the message body for an action: the active stored
// template first, the built-in catalog otherwise.
type Renderer struct {
	store   TemplateStore
	catalog Catalog
	logger  *zap.Logger
}

func NewRenderer(store TemplateStore, catalog Catalog, logger *zap.Logger) *Renderer {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Renderer{store: store, catalog: catalog, logger: logger}
}

// Body never fails. An unknown kind with no stored template yields "".
func (r *Renderer) Body(ctx context.Context, a Action) string {
	content := ""
	if r.store != nil {
		tpl, err := r.store.FindActiveByName(ctx, string(a.Kind))
		switch {
		case err != nil:
			r.logger.Debug("template lookup failed, using fallback",
				zap.String("kind", string(a.Kind)),
				zap.Error(err),
			)
		case tpl != nil && tpl.IsActive:
			content = tpl.Content
		}
	}
	if content == "" {
		content = r.catalog[a.Kind].Body
	}
	return Substitute(content, a.Values())
}

func (r *Renderer) Subject(a Action) string {
	return Substitute(r.catalog[a.Kind].Subject, a.Values())
}

// Substitute replaces every {{key}} with its value verbatim. Unknown
// placeholders are left as they are.
func Substitute(content string, values map[string]string) string {
	if content == "" || len(values) == 0 {
		return content
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", values[k])
	}
	return strings.NewReplacer(pairs...).Replace(content)
}
