package shell

import (
	"encoding/json"
	"errors"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

// ErrMappingToTransitionRecordFailedForTransition is returned when transition serialization fails
var ErrMappingToTransitionRecordFailedForTransition = errors.New("mapping to transition record failed for transition")

// ErrMappingToTransitionRecordFailedForMetadata is returned when metadata serialization fails
var ErrMappingToTransitionRecordFailedForMetadata = errors.New("mapping to transition record failed for metadata")

// transitionEnvelope is the journal payload shape: the transition itself plus
// the tracking metadata that travels with it.
type transitionEnvelope struct {
	Transition json.RawMessage    `json:"transition"`
	Metadata   TransitionMetadata `json:"metadata"`
}

// TransitionRecordFrom converts a Transition plus the persistence bookkeeping
// into a TransitionRecord the store can execute.
//
// The item record is the post-transition state the engines will write;
// expectedVersion is the version the caller loaded (zero for registration).
// The transition and its metadata are folded into the journal payload.
func TransitionRecordFrom(
	transition core.Transition,
	expectedVersion uint,
	item circstore.ItemRecord,
	loanAction circstore.LoanAction,
	loan circstore.LoanRecord,
	metadata TransitionMetadata,
) (circstore.TransitionRecord, error) {
	payloadJSON, err := journalPayloadFrom(transition, metadata)
	if err != nil {
		return circstore.TransitionRecord{}, err
	}

	record, err := circstore.BuildTransitionRecord(
		transition.IsTransitionType(),
		item.ItemCode,
		expectedVersion,
		item,
		loanAction,
		loan,
		payloadJSON,
		transition.HasOccurredAt(),
	)

	if err != nil {
		return circstore.TransitionRecord{}, errors.Join(ErrMappingToTransitionRecordFailedForTransition, err)
	}

	return record, nil
}

// GuardedTransitionRecordFrom converts a loan-opening Transition into a
// TransitionRecord with an open-loan limit attached, so the engines re-check
// the borrower's open-loan count inside the committing transaction.
func GuardedTransitionRecordFrom(
	transition core.Transition,
	expectedVersion uint,
	item circstore.ItemRecord,
	loan circstore.LoanRecord,
	openLoanLimit int,
	metadata TransitionMetadata,
) (circstore.TransitionRecord, error) {
	payloadJSON, err := journalPayloadFrom(transition, metadata)
	if err != nil {
		return circstore.TransitionRecord{}, err
	}

	record, err := circstore.BuildGuardedTransitionRecord(
		transition.IsTransitionType(),
		item.ItemCode,
		expectedVersion,
		item,
		circstore.LoanActionOpen,
		loan,
		openLoanLimit,
		payloadJSON,
		transition.HasOccurredAt(),
	)

	if err != nil {
		return circstore.TransitionRecord{}, errors.Join(ErrMappingToTransitionRecordFailedForTransition, err)
	}

	return record, nil
}

// journalPayloadFrom serializes the transition and its metadata into the
// journal payload envelope.
func journalPayloadFrom(transition core.Transition, metadata TransitionMetadata) ([]byte, error) {
	transitionJSON, err := json.Marshal(transition)
	if err != nil {
		return nil, errors.Join(ErrMappingToTransitionRecordFailedForTransition, err)
	}

	payloadJSON, err := json.Marshal(transitionEnvelope{
		Transition: transitionJSON,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, errors.Join(ErrMappingToTransitionRecordFailedForMetadata, err)
	}

	return payloadJSON, nil
}
