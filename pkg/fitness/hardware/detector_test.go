package hardware

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"batfit/pkg/fitness/core"
)

func TestDetectAvailableMethods(t *testing.T) {
	d := NewDeviceDetector(core.DefaultLimits())
	detected := d.DetectAvailableMethods()

	assert.True(t, detected["software"])
	assert.True(t, detected["kernel"])
	assert.Equal(t, runtime.GOARCH, d.Features().Arch)
	assert.Greater(t, d.RecommendedWorkers(), 0)

	summary := d.GetDetectionSummary()
	assert.Contains(t, summary, "software")
	assert.Contains(t, summary, "Available: 2")
}

func TestDetectRejectsUnusableLimits(t *testing.T) {
	d := NewDeviceDetector(core.Limits{MaxGenes: 0, MaxDim: 10})
	detected := d.DetectAvailableMethods()

	assert.False(t, detected["software"])
	assert.False(t, detected["kernel"])
	assert.Contains(t, d.Reason("kernel"), "limits must be positive")
	assert.Equal(t, "Unknown method", d.Reason("asic"))
}
