package events

import (
	platformevents "lead_portal_backend/platform/events"
	"lead_portal_backend/platform/logger"
)

type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus returns the bus the api and worker processes share between
// their modules.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
