package speech

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential means no API key is configured. It is a
	// deployment problem, not a caller or upstream one.
	ErrMissingCredential = errors.New("speech api key is not configured")

	// ErrDisabled is returned when speech synthesis is switched off.
	ErrDisabled = errors.New("speech synthesis is disabled")

	ErrTaskCreationFailed   = errors.New("speech task creation failed")
	ErrSynthesisFailed      = errors.New("speech synthesis failed")
	ErrSynthesisTimeout     = errors.New("speech synthesis timed out")
	ErrMissingAudioLocation = errors.New("speech task finished without an audio url")
	ErrAudioFetchFailed     = errors.New("fetching synthesized audio failed")
)

// SynthesisError is a task the remote service reported as failed.
type SynthesisError struct {
	TaskID  string
	Message string
}

func (e *SynthesisError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("speech task %s failed", e.TaskID)
	}
	return fmt.Sprintf("speech task %s failed: %s", e.TaskID, e.Message)
}

// Is makes SynthesisError match ErrSynthesisFailed.
func (e *SynthesisError) Is(target error) bool {
	return target == ErrSynthesisFailed
}
