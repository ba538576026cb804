package log

import (
	"sort"

	"impegni/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldOwner       = "owner"
	FieldTemplateID  = "template_id"
	FieldOccurrence  = "occurrence_id"
	FieldKind        = "kind"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldPeriod      = "period"
	FieldNetwork     = "network"
	FieldAmountCents = "amount_cents"
	FieldAffected    = "affected"
	FieldBackend     = "backend"
	FieldSheetsRef   = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentCLI         = "cli"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentSheets      = "sheets"
	ComponentCache       = "cache"
	ComponentBackend     = "backend"
	ComponentCommitments = "commitments"
	ComponentBilling     = "billing"
	ComponentHealth      = "health"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpExport   = "export"
	OpPublish  = "publish"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds the error message; a nil error adds nothing
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithOwner(owner string) LogFields {
	f[FieldOwner] = owner
	return f
}

// WithPeriod adds the year and month of p
func (f LogFields) WithPeriod(p core.Period) LogFields {
	f[FieldYear] = p.Year
	f[FieldMonth] = p.Month
	return f
}

// WithTemplate adds the template id, kind and amount
func (f LogFields) WithTemplate(t core.Template) LogFields {
	f[FieldTemplateID] = t.ID
	f[FieldKind] = string(t.Kind)
	f[FieldAmountCents] = t.Amount.Cents
	return f
}

// ToSlice converts LogFields to a slice for slog, ordered by key so
// records are stable across runs
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
