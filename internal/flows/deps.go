package flows

import (
	"context"
	"net/http"
)

// Reply is a raw backend response.
type Reply struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r Reply) OK() bool { return r.Status >= 200 && r.Status < 300 }

// SendFunc issues one call outside the refresh pipeline. bearer may be empty.
// A non-nil error means no response was received.
type SendFunc func(ctx context.Context, method, path string, body any, bearer string) (Reply, error)

// FailFunc maps a non-2xx reply to the client's error taxonomy. unauthorized
// is the kind a 401 maps to for the calling flow.
type FailFunc func(r Reply, unauthorized error) error

// InvalidFunc builds a local validation error for field.
type InvalidFunc func(field, message string) error

// AuditFunc emits one audit event. meta is called only when audit is enabled.
type AuditFunc func(ctx context.Context, event string, success bool, subject string, err error, meta func() map[string]string)

// Hooks are the observability dependencies shared by every flow.
type Hooks struct {
	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)
}

func (h *Hooks) normalize() {
	if h.MetricInc == nil {
		h.MetricInc = func(int) {}
	}
	if h.EmitAudit == nil {
		h.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if h.Warn == nil {
		h.Warn = func(string, ...any) {}
	}
}

const (
	methodGet  = http.MethodGet
	methodPost = http.MethodPost
)
