package sheets

import (
	"context"

	"entregas/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordWriter mirrors a committed delivery record to an external sheet.
	RecordWriter interface {
		Append(ctx context.Context, rec core.DeliveryRecord) (rowRef string, err error)
	}
)
