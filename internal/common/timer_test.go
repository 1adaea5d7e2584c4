package common

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerStop(t *testing.T) {
	timer := NewTimer()
	time.Sleep(time.Millisecond)

	elapsed := timer.Stop()
	assert.GreaterOrEqual(t, elapsed, time.Millisecond)
	assert.Equal(t, elapsed, timer.Duration())
}

func TestNamedTimer(t *testing.T) {
	timer := NewNamedTimer("recognize")
	timer.Stop()

	assert.Equal(t, "recognize", timer.Name())
	assert.True(t, strings.HasPrefix(timer.String(), "recognize: "))
}

func TestUnnamedTimerString(t *testing.T) {
	timer := NewTimer()
	timer.Stop()

	assert.Empty(t, timer.Name())
	assert.NotContains(t, timer.String(), ":")
}

func TestDurationBeforeStopIsZero(t *testing.T) {
	timer := NewTimer()
	assert.Zero(t, timer.Duration())
}

func TestStageTimingsJSONKeys(t *testing.T) {
	timings := StageTimings{
		AssessNs:     1,
		LayoutNs:     2,
		PreprocessNs: 3,
		RecognizeNs:  4,
		TotalNs:      10,
	}
	data, err := json.Marshal(timings)
	require.NoError(t, err)

	var decoded map[string]int64
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, int64(3), decoded["preprocess_ns"])
	assert.Equal(t, int64(10), decoded["total_ns"])
}
