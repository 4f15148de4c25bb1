package shell

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/core"
)

var (
	// ErrMappingToTransitionFailed is returned when transition conversion fails.
	ErrMappingToTransitionFailed = errors.New("mapping to transition failed")

	// ErrMappingToTransitionUnknownTransitionType is returned for unrecognized transition types.
	ErrMappingToTransitionUnknownTransitionType = errors.New("unknown transition type")
)

// TransitionsFromJournalEntries converts multiple JournalEntries to Transitions.
func TransitionsFromJournalEntries(entries circstore.JournalEntries) (core.Transitions, error) {
	transitions := make(core.Transitions, 0)

	for _, entry := range entries {
		transition, err := TransitionFromJournalEntry(entry)
		if err != nil {
			return nil, err
		}

		transitions = append(transitions, transition)
	}

	return transitions, nil
}

// TransitionFromJournalEntry converts a JournalEntry's payload back into its
// corresponding Transition.
func TransitionFromJournalEntry(entry circstore.JournalEntry) (core.Transition, error) {
	envelope := new(transitionEnvelope)

	err := jsoniter.ConfigFastest.Unmarshal(entry.PayloadJSON, envelope)
	if err != nil {
		return nil, errors.Join(ErrMappingToTransitionFailed, err)
	}

	switch entry.TransitionType {
	case core.ItemRegisteredTransitionType:
		return unmarshalItemRegistered(envelope.Transition)

	case core.ItemCheckedOutTransitionType:
		return unmarshalItemCheckedOut(envelope.Transition)

	case core.ItemReturnedTransitionType:
		return unmarshalItemReturned(envelope.Transition)

	case core.LoanRenewedTransitionType:
		return unmarshalLoanRenewed(envelope.Transition)

	case core.ItemConditionChangedTransitionType:
		return unmarshalItemConditionChanged(envelope.Transition)

	case core.ItemRetiredTransitionType:
		return unmarshalItemRetired(envelope.Transition)
	}

	return nil, errors.Join(ErrMappingToTransitionFailed, ErrMappingToTransitionUnknownTransitionType)
}

func unmarshalItemRegistered(transitionJSON []byte) (core.Transition, error) {
	payload := new(core.ItemRegistered)

	err := jsoniter.ConfigFastest.Unmarshal(transitionJSON, &payload)
	if err != nil {
		return core.ItemRegistered{}, errors.Join(ErrMappingToTransitionFailed, err)
	}

	return core.BuildItemRegistered(
		payload.ItemCode, payload.ItemType, payload.Title, payload.Creator, payload.OccurredAt), nil
}

func unmarshalItemCheckedOut(transitionJSON []byte) (core.Transition, error) {
	payload := new(core.ItemCheckedOut)

	err := jsoniter.ConfigFastest.Unmarshal(transitionJSON, &payload)
	if err != nil {
		return core.ItemCheckedOut{}, errors.Join(ErrMappingToTransitionFailed, err)
	}

	return core.BuildItemCheckedOut(
		payload.ItemCode, payload.Borrower, payload.DueAt, payload.OccurredAt), nil
}

func unmarshalItemReturned(transitionJSON []byte) (core.Transition, error) {
	payload := new(core.ItemReturned)

	err := jsoniter.ConfigFastest.Unmarshal(transitionJSON, &payload)
	if err != nil {
		return core.ItemReturned{}, errors.Join(ErrMappingToTransitionFailed, err)
	}

	return core.BuildItemReturned(payload.ItemCode, payload.Borrower, payload.OccurredAt), nil
}

func unmarshalLoanRenewed(transitionJSON []byte) (core.Transition, error) {
	payload := new(core.LoanRenewed)

	err := jsoniter.ConfigFastest.Unmarshal(transitionJSON, &payload)
	if err != nil {
		return core.LoanRenewed{}, errors.Join(ErrMappingToTransitionFailed, err)
	}

	return core.BuildLoanRenewed(
		payload.ItemCode, payload.Borrower, payload.DueAt, payload.Renewals, payload.OccurredAt), nil
}

func unmarshalItemConditionChanged(transitionJSON []byte) (core.Transition, error) {
	payload := new(core.ItemConditionChanged)

	err := jsoniter.ConfigFastest.Unmarshal(transitionJSON, &payload)
	if err != nil {
		return core.ItemConditionChanged{}, errors.Join(ErrMappingToTransitionFailed, err)
	}

	return core.BuildItemConditionChanged(payload.ItemCode, payload.NextStatus, payload.OccurredAt), nil
}

func unmarshalItemRetired(transitionJSON []byte) (core.Transition, error) {
	payload := new(core.ItemRetired)

	err := jsoniter.ConfigFastest.Unmarshal(transitionJSON, &payload)
	if err != nil {
		return core.ItemRetired{}, errors.Join(ErrMappingToTransitionFailed, err)
	}

	return core.BuildItemRetired(payload.ItemCode, payload.OccurredAt), nil
}
