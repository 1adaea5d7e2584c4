package preprocess

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillscan/quillscan/internal/testutil"
)

func TestPlanForMinimal(t *testing.T) {
	plan := PlanFor(TypeMinimal)

	assert.Equal(t, []Step{StepGrayscale, StepBinarize}, plan.Steps)
	assert.False(t, plan.Adaptive)
	assert.False(t, plan.Has(StepShadow))
	assert.False(t, plan.Has(StepDeskew))
	assert.False(t, plan.Has(StepDenoise))
	assert.False(t, plan.Has(StepCrop))
	assert.False(t, plan.Has(StepPolarity))
}

func TestPlanForBalanced(t *testing.T) {
	plan := PlanFor(TypeBalanced)

	assert.Equal(t, []Step{StepPolarity, StepGrayscale, StepDenoise, StepBinarize}, plan.Steps)
	assert.Equal(t, DenoiseMedian, plan.Denoise)
	assert.False(t, plan.Adaptive)
	assert.False(t, plan.Has(StepShadow))
	assert.False(t, plan.Has(StepDeskew))
}

func TestPlanForAggressive(t *testing.T) {
	plan := PlanFor(TypeAggressive)

	assert.Equal(t, chainOrder, plan.Steps)
	assert.Equal(t, DenoiseBilateral, plan.Denoise)
	assert.True(t, plan.Adaptive)
	assert.Equal(t, 29, plan.AdaptiveBlock)
	assert.Equal(t, 11, plan.AdaptiveC)
	assert.InDelta(t, 15.0, plan.MaxSkewDegrees, 1e-9)
}

func TestPlanForUnknownFallsBackToMinimal(t *testing.T) {
	assert.Equal(t, PlanFor(TypeMinimal).Steps, PlanFor(Type("bogus")).Steps)
}

func TestApplyNeverMutatesInput(t *testing.T) {
	img := testutil.RenderPage(testutil.DefaultPageConfig())
	before := clonePixels(t, img)

	for _, typ := range []Type{TypeMinimal, TypeBalanced, TypeAggressive} {
		out := Apply(img, PlanFor(typ))
		require.NotNil(t, out)
		assert.NotSame(t, img, out, "variant %s returned the input buffer", typ)
	}

	assert.Equal(t, before, clonePixels(t, img))
}

func TestApplyNilImage(t *testing.T) {
	assert.Nil(t, Apply(nil, PlanFor(TypeMinimal)))
}

func TestApplyMinimalProducesBinaryOutput(t *testing.T) {
	img := testutil.RenderPage(testutil.DefaultPageConfig())
	out := Apply(img, PlanFor(TypeMinimal))

	gray, ok := out.(*image.Gray)
	require.True(t, ok)
	for _, p := range gray.Pix {
		assert.True(t, p == 0 || p == 255, "pixel value %d is not binary", p)
	}
}

func clonePixels(t *testing.T, img image.Image) []uint8 {
	t.Helper()
	b := img.Bounds()
	pix := make([]uint8, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			pix = append(pix, uint8(r>>8))
		}
	}
	return pix
}
