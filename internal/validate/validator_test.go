package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfqworks/rfqd/internal/config"
	"github.com/rfqworks/rfqd/internal/logging"
	"github.com/rfqworks/rfqd/internal/rfq"
)

func testValidator() *Validator {
	return New(config.ValidationConfig{
		AcceptThreshold: 0.70,
		VerifyFloor:     0.50,
		MaxConcurrent:   4,
	}, logging.NewTestLogger().Logger)
}

func completeItem() rfq.RequestedItem {
	length := 100.0
	return rfq.RequestedItem{
		Pos:         10,
		ArticleName: "PF-DIN6885-C45K-AS-20X12X100-M6",
		Quantity:    500,
		Unit:        "pcs",
		Config: rfq.ItemConfig{
			Standard: "DIN6885",
			Form:     "AS",
			Material: "C45K",
			Dimensions: &rfq.Dimensions{
				Width: 20, Height: 12, Length: &length,
			},
			Features: []rfq.Feature{{FeatureType: "thread", Spec: "M6"}},
		},
	}
}

func TestScoreCompleteItemHighConfidence(t *testing.T) {
	v := testValidator()
	item := completeItem()
	snippet := "10 PF-DIN6885-C45K-AS-20X12X100-M6 500 pcs"

	score := v.Score(item, snippet)
	assert.GreaterOrEqual(t, score, 0.9)
}

func TestScoreMissingUnitFallsBelowFloor(t *testing.T) {
	v := testValidator()
	item := completeItem()
	item.Unit = ""

	score := v.Score(item, "10 PF-DIN6885-C45K-AS-20X12X100-M6 500")
	assert.Less(t, score, 0.5)
}

func TestScoreBounds(t *testing.T) {
	v := testValidator()

	// An item that trips every penalty must still clamp at zero.
	item := rfq.RequestedItem{
		ArticleName: "",
		Config: rfq.ItemConfig{
			Form:     "B",
			Material: "XYZ99",
			Features: []rfq.Feature{{FeatureType: "thread", Spec: "M99"}},
		},
	}
	score := v.Score(item, "B=20 Form M6 30x40x50")
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
	assert.Equal(t, 0.0, score)
}

func TestScoreNoSnippetIsBlind(t *testing.T) {
	v := testValidator()
	assert.InDelta(t, 0.5, v.Score(completeItem(), ""), 0.001)
}

func TestScoreDoesNotMutate(t *testing.T) {
	v := testValidator()
	item := completeItem()
	before := item.Config.Material

	v.Score(item, "text with 30x40x50 and M8")
	assert.Equal(t, before, item.Config.Material)
	assert.Empty(t, item.Metadata.RawTextSnippet)
}

func TestScorePenalizesMissedDimensions(t *testing.T) {
	v := testValidator()
	item := completeItem()
	item.Config.Dimensions = nil

	withDims := v.Score(item, "10 Passfeder 20x12x100 M6 pcs")
	item2 := completeItem()
	withoutMiss := v.Score(item2, "10 Passfeder 20x12x100 M6 pcs")
	assert.Less(t, withDims, withoutMiss)
}

func TestScoreFormDimensionConfusion(t *testing.T) {
	v := testValidator()
	item := completeItem()
	item.Config.Form = "B"

	score := v.Score(item, "10 Passfeder B=20 H=12 L=100 M6")
	assert.Less(t, score, 0.7, "form/dimension confusion must land below the acceptance threshold")
}

func TestAnnotateFindsLineByPos(t *testing.T) {
	v := testValidator()
	source := "ANFRAGE Nr. 123\n10  PF-DIN6885-C45K-AS-20X12X100-M6  500 pcs\n20  Something else\n"

	items := v.Annotate([]rfq.RequestedItem{completeItem()}, source, "")
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Metadata.RawTextSnippet, "PF-DIN6885")
	assert.GreaterOrEqual(t, items[0].Metadata.RuleConfidenceScore, 0.9)
	assert.Equal(t, rfq.StatusUnset, items[0].Metadata.Status)
}

func TestAnnotateOverridesDimensionsFromText(t *testing.T) {
	v := testValidator()
	item := completeItem()
	// Oracle hallucinated dimensions; the source line says 25x14x80.
	item.ArticleName = "PF-DIN6885-C45K-AS-25X14X80-M6"
	wrong := 999.0
	item.Config.Dimensions = &rfq.Dimensions{Width: 1, Height: 2, Length: &wrong}

	source := "10  PF-DIN6885-C45K-AS-25X14X80-M6  500 pcs"
	items := v.Annotate([]rfq.RequestedItem{item}, source, "")

	dims := items[0].Config.Dimensions
	require.NotNil(t, dims)
	assert.InDelta(t, 25, dims.Width, 0.001)
	assert.InDelta(t, 14, dims.Height, 0.001)
	require.NotNil(t, dims.Length)
	assert.InDelta(t, 80, *dims.Length, 0.001)
}

func TestAnnotateMergesMissingThreadFeatures(t *testing.T) {
	v := testValidator()
	item := completeItem()
	item.Config.Features = nil

	source := "10  PF-DIN6885-C45K-AS-20X12X100-M6  500 pcs"
	items := v.Annotate([]rfq.RequestedItem{item}, source, "")

	require.Len(t, items[0].Config.Features, 1)
	assert.Equal(t, "M6", items[0].Config.Features[0].Spec)
}

func TestAnnotateAutoCorrectsMaterial(t *testing.T) {
	v := testValidator()
	item := completeItem()
	item.Config.Material = "P5K"
	item.ArticleName = "PF-DIN6885-P5K-AS-20X12X100-M6"

	source := "10  PF-DIN6885-C45K-AS-20X12X100-M6  500 pcs"
	items := v.Annotate([]rfq.RequestedItem{item}, source, "")

	assert.Equal(t, "C45K", items[0].Config.Material)
	assert.Contains(t, items[0].ArticleName, "C45K")
	assert.Equal(t, "P5K -> C45K", items[0].Metadata.MaterialAutoCorrected)
}

func TestAnnotatePrefersNativeTextWhenPresent(t *testing.T) {
	v := testValidator()
	item := completeItem()

	native := "10  PF-DIN6885-C45K-AS-20X12X100-M6  500 pcs native line here"
	ocr := "10  garbled ocr line"
	items := v.Annotate([]rfq.RequestedItem{item}, native, ocr)
	assert.Contains(t, items[0].Metadata.RawTextSnippet, "native line")
}

func TestFixMaterial(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"P5K", "C45K"},
		{"C45C", "C45+C"},
		{"P885-C45C", "C45+C"},
		{"PF-C45K", "C45K"},
		{"C45K", "C45K"},
		{"42CrMo4", "42CrMo4"},
		{"XYZ99", "XYZ99"}, // unknown stays, validator penalizes
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FixMaterial(tt.in), "FixMaterial(%q)", tt.in)
	}
}

func TestMaterialValid(t *testing.T) {
	assert.True(t, MaterialValid("C45K"))
	assert.True(t, MaterialValid("C45 / C45K"))
	assert.True(t, MaterialValid(""))
	assert.False(t, MaterialValid("P5K"))
	assert.False(t, MaterialValid("C45K/XYZ"))
}

func TestParseDimensions(t *testing.T) {
	d := ParseDimensions("Passfeder 20x12x100")
	require.NotNil(t, d)
	assert.InDelta(t, 20, d.Width, 0.001)
	require.NotNil(t, d.Length)
	assert.InDelta(t, 100, *d.Length, 0.001)

	d = ParseDimensions("Flachstahl 20,5 x 12")
	require.NotNil(t, d)
	assert.InDelta(t, 20.5, d.Width, 0.001)
	assert.Nil(t, d.Length)

	assert.Nil(t, ParseDimensions("no dimensions here"))
}

func TestExtractThreadFeatures(t *testing.T) {
	feats := ExtractThreadFeatures("Passfeder -M6 und M8 nochmal M6")
	require.Len(t, feats, 2)
	assert.Equal(t, "M6", feats[0].Spec)
	assert.Equal(t, "M8", feats[1].Spec)

	assert.Empty(t, ExtractThreadFeatures("Materialnummer 4711"))
}

func TestThreadSize(t *testing.T) {
	v, ok := threadSize("M6")
	require.True(t, ok)
	assert.InDelta(t, 6, v, 0.001)

	v, ok = threadSize("M10x1")
	require.True(t, ok)
	assert.InDelta(t, 10, v, 0.001)

	_, ok = threadSize("Mxx")
	assert.False(t, ok)
}
