package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeMagnifierResolutionHourlyPicksFiveMinute(t *testing.T) {
	assert.Equal(t, 5, ComputeMagnifierResolution(60, 10))
}

func TestComputeMagnifierResolutionFourHourPicksFifteenMinute(t *testing.T) {
	assert.Equal(t, 15, ComputeMagnifierResolution(240, 10))
}

func TestComputeMagnifierResolutionOneMinuteFallsBackToItself(t *testing.T) {
	assert.Equal(t, 1, ComputeMagnifierResolution(1, 10))
}

func TestComputeMagnifierResolutionNonPositiveTargetDefaults(t *testing.T) {
	// targetTicks <= 0 defaults to 10, matching the hourly case above.
	assert.Equal(t, 5, ComputeMagnifierResolution(60, 0))
}
