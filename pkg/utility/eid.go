package utility

import (
	"github.com/google/uuid"
)

// ExecutionID identifies one strategy run in logs and summaries. It never
// influences simulation results.
type ExecutionID = uuid.UUID

func NewExecutionID() ExecutionID {
	return uuid.Must(uuid.NewV7())
}
