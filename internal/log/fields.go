package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRunID        = "run_id"
	FieldPeriod       = "period"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldPath         = "path"
	FieldCategory     = "category"
	FieldTransactions = "transactions"
	FieldMatched      = "matched"
	FieldSkipped      = "skipped"
	FieldRemainder    = "remainder"
	FieldAssigned     = "assigned"
	FieldOutcome      = "outcome"
	FieldAmount       = "amount"
	FieldFallback     = "fallback"
	FieldProvider     = "provider"
	FieldIncluded     = "included"
	FieldExcluded     = "excluded"
	FieldExpected     = "expected"
	FieldBackend      = "backend"
	FieldExporter     = "exporter"
	FieldRef          = "ref"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentIngest    = "ingest"
	ComponentClassify  = "classify"
	ComponentResolve   = "resolve"
	ComponentCommit    = "commitment"
	ComponentAggregate = "aggregate"
	ComponentProviders = "providers"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentBackend   = "backend"
	ComponentReport    = "report"
)

// Operations defines standard operation names
const (
	OpProcess = "process"
	OpImport  = "import"
	OpExport  = "export"
	OpPrint   = "print"
	OpIncome  = "income"
	OpLoad    = "load"
	OpSave    = "save"
	OpMerge   = "merge"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithPeriod adds the period key and the runs that produced it
func (f LogFields) WithPeriod(period string, runs []string) LogFields {
	f[FieldPeriod] = period
	f[FieldRunID] = runs
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
