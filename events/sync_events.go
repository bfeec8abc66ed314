package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// ContentSavedEvent is emitted after document content has been durably
// persisted. The presence module consumes it and notifies the room.
type ContentSavedEvent struct {
	DocumentType string    `json:"documentType"`
	DocumentID   string    `json:"documentId"`
	Timestamp    time.Time `json:"timestamp"`
	SavedBy      string    `json:"savedBy"`
}

// Event definitions for the sync domain.
var (
	ContentSavedV1 = helper.EventDefinition[ContentSavedEvent](
		"sync",
		"ContentSaved",
		"v1",
	)
)
