package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldMonth      = "month"
	FieldDriver     = "driver"
	FieldRoute      = "route"
	FieldLoad       = "load"
	FieldDeliveries = "deliveries"
	FieldRecordID   = "record_id"
	FieldSheetRef   = "sheet_ref"
	FieldCount      = "count"
)

// Standard component names.
const (
	ComponentApp    = "app"
	ComponentLedger = "ledger"
	ComponentWorker = "worker"
	ComponentStore  = "store"
	ComponentSheets = "sheets"
	ComponentAMQP   = "amqp"
)

// Standard operation names.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpImport = "import"
	OpAppend = "append"
	OpSync   = "sync"
	OpClear  = "clear"
)

// LogFields is a builder for structured log attributes.
type LogFields map[string]any

// NewFields creates an empty LogFields.
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds the error field when err is non-nil.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds the operation field.
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRecord adds delivery-record fields.
func (f LogFields) WithRecord(id, driver, route string, deliveries int) LogFields {
	f[FieldRecordID] = id
	f[FieldDriver] = driver
	f[FieldRoute] = route
	f[FieldDeliveries] = deliveries
	return f
}

// ToSlice converts LogFields to the alternating key/value form slog expects.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
