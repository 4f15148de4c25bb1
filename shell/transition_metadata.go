package shell

import (
	"errors"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/stacksys/circulation-tracker-go/circstore"
)

// ErrMappingToTransitionMetadataFailed is returned when metadata extraction fails.
var ErrMappingToTransitionMetadataFailed = errors.New("mapping to transition metadata failed")

// MessageID represents a unique message identifier.
type MessageID = string

// CausationID represents the ID of the message that caused this transition.
type CausationID = string

// CorrelationID represents the ID correlating related transitions.
type CorrelationID = string

// TransitionMetadata contains transition tracking information. It travels
// inside the journal payload envelope next to the transition itself.
type TransitionMetadata struct {
	MessageID     MessageID     `json:"messageID"`
	CausationID   CausationID   `json:"causationID"`
	CorrelationID CorrelationID `json:"correlationID"`
}

// BuildTransitionMetadata creates TransitionMetadata from UUID values.
func BuildTransitionMetadata(messageID uuid.UUID, causationID uuid.UUID, correlationID uuid.UUID) TransitionMetadata {
	return TransitionMetadata{
		MessageID:     messageID.String(),
		CausationID:   causationID.String(),
		CorrelationID: correlationID.String(),
	}
}

// TransitionMetadataFrom extracts TransitionMetadata from a JournalEntry's
// payload envelope.
func TransitionMetadataFrom(entry circstore.JournalEntry) (TransitionMetadata, error) {
	envelope := new(transitionEnvelope)
	err := jsoniter.ConfigFastest.Unmarshal(entry.PayloadJSON, envelope)
	if err != nil {
		return TransitionMetadata{}, errors.Join(ErrMappingToTransitionMetadataFailed, err)
	}

	return envelope.Metadata, nil
}
