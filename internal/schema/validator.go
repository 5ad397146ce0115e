// Package schema provides sanity validation of outgoing transcript events.
package schema

import (
	"errors"
	"fmt"

	"voice-interrupt-filter/internal/models"
)

var (
	ErrMissingInteractionID = errors.New("missing interactionId")
	ErrMissingSegmentID     = errors.New("missing segmentId")
	ErrConfidenceOutOfRange = errors.New("confidence out of [0,1]")
	ErrMissingReason        = errors.New("missing suppression reason")
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks required fields and value ranges before an event is
// published. Unknown event types pass through untouched.
func (v *Validator) Validate(event any) error {
	switch ev := event.(type) {
	case models.TranscriptPartial:
		return validateIDs(ev.InteractionID, ev.SegmentID)
	case models.TranscriptFinal:
		if err := validateIDs(ev.InteractionID, ev.SegmentID); err != nil {
			return err
		}
		if ev.Confidence != nil && (*ev.Confidence < 0 || *ev.Confidence > 1) {
			return fmt.Errorf("%w: %f", ErrConfidenceOutOfRange, *ev.Confidence)
		}
		return nil
	case models.TranscriptFiltered:
		if err := validateIDs(ev.InteractionID, ev.SegmentID); err != nil {
			return err
		}
		if ev.Confidence != nil && (*ev.Confidence < 0 || *ev.Confidence > 1) {
			return fmt.Errorf("%w: %f", ErrConfidenceOutOfRange, *ev.Confidence)
		}
		if ev.Reason == "" {
			return ErrMissingReason
		}
		return nil
	default:
		return nil
	}
}

func validateIDs(interactionID, segmentID string) error {
	if interactionID == "" {
		return ErrMissingInteractionID
	}
	if segmentID == "" {
		return ErrMissingSegmentID
	}
	return nil
}
