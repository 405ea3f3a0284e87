package importer

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/zentikhq/zentik-sync/internal/cache"
	"github.com/zentikhq/zentik-sync/internal/entity"
	pkgerrors "github.com/zentikhq/zentik-sync/pkg/errors"
)

// RedactedToken replaces sensitive values in exported documents.
const RedactedToken = "***REDACTED***"

// sensitiveFields are masked wherever they appear in an exported tree.
var sensitiveFields = map[string]struct{}{
	"token":       {},
	"deviceToken": {},
	"authToken":   {},
	"authKey":     {},
	"password":    {},
	"privateKey":  {},
	"publicKey":   {},
	"secret":      {},
}

// Exporter renders the cached notification feed back out as a JSON
// document safe to share in a support bundle.
type Exporter struct {
	store cache.Store
}

// NewExporter wires the exporter onto a cache store.
func NewExporter(store cache.Store) (*Exporter, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cache store required")
	}
	return &Exporter{store: store}, nil
}

// Export resolves the notification feed and returns it as indented
// JSON. Internal cache metadata is stripped and credentials are masked;
// the output can be fed back through ImportJSON on another device.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	keys, ok, err := e.store.ListResult(ctx, cache.DomainNotifications)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading notification feed")
	}
	if !ok {
		keys = nil
	}

	items := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		ent, found, err := e.store.Get(ctx, key)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading cached entity")
		}
		if !found {
			continue
		}
		items = append(items, Sanitize(map[string]any(ent)))
	}

	out, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding export document")
	}
	return string(out), nil
}

// Sanitize returns a deep copy of value with cache-internal fields
// removed and sensitive fields masked. The type tag survives so the
// document stays importable.
func Sanitize(value map[string]any) map[string]any {
	out := make(map[string]any, len(value))
	for key, val := range value {
		if strings.HasPrefix(key, "__") && key != entity.TypeField {
			continue
		}
		if _, sensitive := sensitiveFields[key]; sensitive {
			out[key] = RedactedToken
			continue
		}
		out[key] = sanitizeValue(val)
	}
	return out
}

func sanitizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return Sanitize(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return value
	}
}
