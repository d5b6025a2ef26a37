package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusUploading))
	assert.True(t, StatusPending.CanTransitionTo(StatusProcessing))
	assert.True(t, StatusUploading.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusFailed))

	assert.False(t, StatusPending.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusFailed))
	assert.False(t, StatusFailed.CanTransitionTo(StatusProcessing))
	assert.False(t, StatusProcessing.CanTransitionTo(StatusPending))
}

func TestStatusTerminality(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusUploading.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
}

func TestStatusValidity(t *testing.T) {
	for _, s := range []DocumentStatus{StatusPending, StatusUploading, StatusProcessing, StatusCompleted, StatusFailed} {
		assert.True(t, s.IsValid(), string(s))
	}
	assert.False(t, DocumentStatus("BOGUS").IsValid())
	assert.False(t, DocumentStatus("").IsValid())
}
