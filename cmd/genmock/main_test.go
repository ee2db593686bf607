package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildState_EmptyHistory(t *testing.T) {
	state := buildState(nil, nil, 0)
	assert.True(t, state.DetectionsWatermark.IsZero())
	assert.True(t, state.EnvironmentWatermark.IsZero())
}

func TestBuildState_WatermarksCoverGeneratedRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	detections := genDetections(rng, "st1", 2, 10)
	environment := genEnvironment(rng, "st1", 2)
	require.NotEmpty(t, detections)
	require.NotEmpty(t, environment)

	state := buildState(detections, environment, 2)
	assert.Equal(t, detections[len(detections)-1].Timestamp, state.DetectionsWatermark)
	assert.Equal(t, environment[len(environment)-1].Timestamp, state.EnvironmentWatermark)
}

func TestGenDetections_ZeroDaysIsEmpty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Empty(t, genDetections(rng, "st1", 0, 120))
	assert.Empty(t, genEnvironment(rng, "st1", 0))
}
