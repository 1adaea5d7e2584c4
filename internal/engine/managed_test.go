package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine returns scripted observations keyed by (psm, oem) and counts
// invocations.
type fakeEngine struct {
	mu      sync.Mutex
	calls   int
	observe map[[2]int]Observation
	fail    map[[2]int]error
	failAll error
}

func (f *fakeEngine) Recognize(_ context.Context, _ image.Image, params Params) (Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAll != nil {
		return Observation{}, f.failAll
	}
	key := [2]int{params.PSM, params.OEM}
	if err, ok := f.fail[key]; ok {
		return Observation{}, err
	}
	if obs, ok := f.observe[key]; ok {
		return obs, nil
	}
	return Observation{Text: "fallback", Confidence: 10}, nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testImage(seed uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = seed + uint8(i)
	}
	return img
}

func TestRecognizeFirstStepWins(t *testing.T) {
	fake := &fakeEngine{observe: map[[2]int]Observation{
		{6, 1}: {Text: "hello", Confidence: 95},
	}}
	m, err := NewManaged(fake, DefaultConfig())
	require.NoError(t, err)

	res, err := m.Recognize(context.Background(), testImage(0), Request{PSM: 6, OEM: 1})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.InDelta(t, 95.0, res.Confidence, 1e-9)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 6, res.PSM)
	assert.Equal(t, 1, res.OEM)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, fake.callCount())
}

func TestRecognizeLadderExhaustionPicksBest(t *testing.T) {
	// Every step stays below the confidence threshold; the best attempt wins
	// and the attempt count covers the whole ladder.
	fake := &fakeEngine{observe: map[[2]int]Observation{
		{6, 1}:  {Text: "first", Confidence: 40},
		{11, 1}: {Text: "second", Confidence: 55},
		{3, 0}:  {Text: "third", Confidence: 30},
	}}
	cfg := DefaultConfig()
	cfg.Ladder = []LadderStep{{PSM: 11, OEM: 1}, {PSM: 3, OEM: 0}}
	m, err := NewManaged(fake, cfg)
	require.NoError(t, err)

	res, err := m.Recognize(context.Background(), testImage(0), Request{PSM: 6, OEM: 1})
	require.NoError(t, err)
	assert.Equal(t, "second", res.Text)
	assert.InDelta(t, 55.0, res.Confidence, 1e-9)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 11, res.PSM)
	assert.Equal(t, 1, res.OEM)
}

func TestRecognizeStopsAtFirstAcceptableStep(t *testing.T) {
	fake := &fakeEngine{observe: map[[2]int]Observation{
		{6, 1}:  {Text: "weak", Confidence: 40},
		{11, 1}: {Text: "strong", Confidence: 85},
		{3, 0}:  {Text: "never reached", Confidence: 99},
	}}
	m, err := NewManaged(fake, DefaultConfig())
	require.NoError(t, err)

	res, err := m.Recognize(context.Background(), testImage(0), Request{PSM: 6, OEM: 1})
	require.NoError(t, err)
	assert.Equal(t, "strong", res.Text)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 2, fake.callCount(), "third ladder step must not run")
}

func TestRecognizeSkipsDuplicatePrimaryStep(t *testing.T) {
	fake := &fakeEngine{observe: map[[2]int]Observation{
		{6, 1}: {Text: "weak", Confidence: 10},
	}}
	cfg := DefaultConfig()
	cfg.Ladder = []LadderStep{{PSM: 6, OEM: 1}}
	m, err := NewManaged(fake, cfg)
	require.NoError(t, err)

	res, err := m.Recognize(context.Background(), testImage(0), Request{PSM: 6, OEM: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, fake.callCount(), "primary parameters must not repeat as a fallback")
}

func TestRecognizeEmptyTextNeverAcceptedEarly(t *testing.T) {
	fake := &fakeEngine{observe: map[[2]int]Observation{
		{6, 1}:  {Text: "", Confidence: 99},
		{11, 1}: {Text: "real text", Confidence: 80},
	}}
	m, err := NewManaged(fake, DefaultConfig())
	require.NoError(t, err)

	res, err := m.Recognize(context.Background(), testImage(0), Request{PSM: 6, OEM: 1})
	require.NoError(t, err)
	assert.Equal(t, "real text", res.Text)
}

func TestRecognizeExhaustionPrefersTextOverEmpty(t *testing.T) {
	// Every step stays below the confidence threshold and the primary reads
	// nothing at inflated confidence. The best usable text must win, never
	// the empty high-confidence attempt.
	fake := &fakeEngine{observe: map[[2]int]Observation{
		{6, 1}:  {Text: "", Confidence: 99},
		{11, 1}: {Text: "usable words", Confidence: 50},
		{3, 0}:  {Text: "more words", Confidence: 40},
	}}
	m, err := NewManaged(fake, DefaultConfig())
	require.NoError(t, err)

	res, err := m.Recognize(context.Background(), testImage(0), Request{PSM: 6, OEM: 1})
	require.NoError(t, err)
	assert.Equal(t, "usable words", res.Text)
	assert.InDelta(t, 50.0, res.Confidence, 1e-9)
	assert.Equal(t, 11, res.PSM)
	assert.Equal(t, 3, res.Attempts)
}

func TestRecognizeStepFailureFallsThrough(t *testing.T) {
	fake := &fakeEngine{
		observe: map[[2]int]Observation{
			{11, 1}: {Text: "recovered", Confidence: 90},
		},
		fail: map[[2]int]error{
			{6, 1}: errors.New("engine crashed"),
		},
	}
	m, err := NewManaged(fake, DefaultConfig())
	require.NoError(t, err)

	res, err := m.Recognize(context.Background(), testImage(0), Request{PSM: 6, OEM: 1})
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Text)
	assert.Equal(t, 1, res.Attempts, "failed invocations do not count as attempts")
	// Primary step was tried twice (one retry), then the fallback succeeded.
	assert.Equal(t, 3, fake.callCount())
}

func TestRecognizeAllStepsFailReturnsError(t *testing.T) {
	fake := &fakeEngine{failAll: errors.New("tesseract unavailable")}
	m, err := NewManaged(fake, DefaultConfig())
	require.NoError(t, err)

	_, err = m.Recognize(context.Background(), testImage(0), Request{PSM: 6, OEM: 1})
	require.Error(t, err)
	assert.ErrorContains(t, err, "tesseract unavailable")
}

func TestRecognizeCacheHit(t *testing.T) {
	fake := &fakeEngine{observe: map[[2]int]Observation{
		{6, 1}: {Text: "cached text", Confidence: 95},
	}}
	m, err := NewManaged(fake, DefaultConfig())
	require.NoError(t, err)

	img := testImage(0)
	first, err := m.Recognize(context.Background(), img, Request{PSM: 6, OEM: 1})
	require.NoError(t, err)
	require.False(t, first.Cached)
	callsAfterFirst := fake.callCount()

	second, err := m.Recognize(context.Background(), img, Request{PSM: 6, OEM: 1})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.InDelta(t, first.Confidence, second.Confidence, 1e-9)
	assert.Equal(t, callsAfterFirst, fake.callCount(), "cache hit must not invoke the engine")

	snap := m.Stats()
	assert.EqualValues(t, 1, snap.CacheHits)
	assert.EqualValues(t, 1, snap.CacheMisses)
}

func TestRecognizeCacheKeyedOnParams(t *testing.T) {
	fake := &fakeEngine{observe: map[[2]int]Observation{
		{6, 1}: {Text: "a", Confidence: 95},
		{3, 3}: {Text: "b", Confidence: 95},
	}}
	m, err := NewManaged(fake, DefaultConfig())
	require.NoError(t, err)

	img := testImage(0)
	first, err := m.Recognize(context.Background(), img, Request{PSM: 6, OEM: 1})
	require.NoError(t, err)
	second, err := m.Recognize(context.Background(), img, Request{PSM: 3, OEM: 3})
	require.NoError(t, err)

	assert.Equal(t, "a", first.Text)
	assert.Equal(t, "b", second.Text)
	assert.False(t, second.Cached, "different parameters must not share a cache entry")
}

func TestRecognizeCacheEviction(t *testing.T) {
	fake := &fakeEngine{observe: map[[2]int]Observation{
		{6, 1}: {Text: "x", Confidence: 95},
	}}
	cfg := DefaultConfig()
	cfg.CacheCapacity = 2
	m, err := NewManaged(fake, cfg)
	require.NoError(t, err)

	ctx := context.Background()
	imgA, imgB, imgC := testImage(1), testImage(2), testImage(3)
	req := Request{PSM: 6, OEM: 1}
	// Contains inspects the cache without updating recency, so the checks
	// below cannot disturb the eviction order they verify.
	keyFor := func(img image.Image) string {
		params := Params{PSM: req.PSM, OEM: req.OEM, Profile: m.profileFor(req.OEM)}
		return cacheKey(ImageDigest(img), params, m.cfg.MinConfidence)
	}

	_, err = m.Recognize(ctx, imgA, req)
	require.NoError(t, err)
	_, err = m.Recognize(ctx, imgB, req)
	require.NoError(t, err)

	// Touch A so B becomes least recently used, then insert C.
	resA, err := m.Recognize(ctx, imgA, req)
	require.NoError(t, err)
	require.True(t, resA.Cached)
	_, err = m.Recognize(ctx, imgC, req)
	require.NoError(t, err)

	assert.Equal(t, 2, m.CacheLen())
	assert.False(t, m.cache.Contains(keyFor(imgB)), "least recently used entry must have been evicted")
	assert.True(t, m.cache.Contains(keyFor(imgA)), "recently touched entry must survive eviction")
	assert.True(t, m.cache.Contains(keyFor(imgC)), "new entry must be cached")
}

func TestRecognizeContextCancellation(t *testing.T) {
	fake := &fakeEngine{observe: map[[2]int]Observation{}}
	m, err := NewManaged(fake, DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Recognize(ctx, testImage(0), Request{PSM: 6, OEM: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecognizeNilImage(t *testing.T) {
	m, err := NewManaged(&fakeEngine{}, DefaultConfig())
	require.NoError(t, err)
	_, err = m.Recognize(context.Background(), nil, Request{PSM: 6, OEM: 1})
	assert.Error(t, err)
}

func TestRecognizeNormalizesTextNFC(t *testing.T) {
	// U+0065 U+0301 (e + combining acute) composes to U+00E9.
	fake := &fakeEngine{observe: map[[2]int]Observation{
		{6, 1}: {Text: "café", Confidence: 95},
	}}
	m, err := NewManaged(fake, DefaultConfig())
	require.NoError(t, err)

	res, err := m.Recognize(context.Background(), testImage(0), Request{PSM: 6, OEM: 1})
	require.NoError(t, err)
	assert.Equal(t, "café", res.Text)
}

func TestNewManagedValidation(t *testing.T) {
	_, err := NewManaged(nil, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.CacheCapacity = -5
	m, err := NewManaged(&fakeEngine{}, cfg)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestStatsSnapshot(t *testing.T) {
	fake := &fakeEngine{observe: map[[2]int]Observation{
		{6, 1}: {Text: "t", Confidence: 80},
	}}
	m, err := NewManaged(fake, DefaultConfig())
	require.NoError(t, err)

	for i := range 3 {
		_, err := m.Recognize(context.Background(), testImage(uint8(10*i)), Request{PSM: 6, OEM: 1})
		require.NoError(t, err)
	}
	snap := m.Stats()
	assert.EqualValues(t, 3, snap.Recognitions)
	assert.EqualValues(t, 3, snap.TotalAttempts)
	assert.InDelta(t, 80.0, snap.MeanConfidence, 1e-9)
	assert.EqualValues(t, 0, snap.CacheHits)
	assert.EqualValues(t, 3, snap.CacheMisses)
}

func TestProfileForOEM(t *testing.T) {
	tests := []struct {
		oem  int
		want Profile
	}{
		{0, ProfileFast},
		{1, ProfileFast},
		{2, ProfileStandard},
		{3, ProfileBest},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("oem %d", tt.oem), func(t *testing.T) {
			assert.Equal(t, tt.want, ProfileForOEM(tt.oem))
		})
	}
}
