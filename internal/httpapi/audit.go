package httpapi

import (
	"context"

	"voltaccess.org/internal/audit"
)

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	_ = audit.LogEvent(ctx, event, fields)
}
