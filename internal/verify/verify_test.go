package verify

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfqworks/rfqd/internal/config"
	"github.com/rfqworks/rfqd/internal/logging"
	"github.com/rfqworks/rfqd/internal/oracle"
	"github.com/rfqworks/rfqd/internal/rfq"
)

func testValidationConfig() config.ValidationConfig {
	return config.ValidationConfig{
		AcceptThreshold: 0.70,
		VerifyFloor:     0.50,
		MaxConcurrent:   4,
	}
}

func scoredItem(pos int, score float64) rfq.RequestedItem {
	return rfq.RequestedItem{
		Pos:         pos,
		ArticleName: "Passfeder DIN 6885",
		Quantity:    100,
		Unit:        "pcs",
		Metadata: rfq.ItemMetadata{
			RuleConfidenceScore: score,
			RawTextSnippet:      "Pos 1 Passfeder DIN 6885 100 Stk",
		},
	}
}

func TestNeedsVerificationBand(t *testing.T) {
	orch := New(&oracle.ScriptedOracle{}, testValidationConfig(), logging.NewNop())

	assert.False(t, orch.NeedsVerification(0.70), "threshold is exclusive upper bound")
	assert.False(t, orch.NeedsVerification(0.95))
	assert.True(t, orch.NeedsVerification(0.50), "floor is inclusive lower bound")
	assert.True(t, orch.NeedsVerification(0.69))
	assert.False(t, orch.NeedsVerification(0.49))
	assert.False(t, orch.NeedsVerification(0))
}

func TestRunOnlyEscalatesBandItems(t *testing.T) {
	scripted := &oracle.ScriptedOracle{}
	scripted.QueueVerdict(&oracle.Verdict{IsCorrect: true, Confidence: 0.95}, nil)

	orch := New(scripted, testValidationConfig(), logging.NewNop())
	items := []rfq.RequestedItem{
		scoredItem(1, 0.95), // accepted outright
		scoredItem(2, 0.60), // band
		scoredItem(3, 0.30), // below floor
	}

	out := orch.Run(context.Background(), items, "")
	require.Len(t, out, 3)

	assert.Equal(t, rfq.StatusUnset, out[0].Metadata.Status)
	assert.Equal(t, rfq.StatusVerifiedCorrect, out[1].Metadata.Status)
	assert.Equal(t, rfq.StatusUnset, out[2].Metadata.Status)

	calls := scripted.VerifyCalls()
	require.Len(t, calls, 1, "exactly one verifier call for the one band item")
	assert.Equal(t, 2, calls[0].Item.Pos)
	assert.Equal(t, items[1].Metadata.RawTextSnippet, calls[0].RawTextSnippet)
}

func TestRunAppliesAcceptedCorrection(t *testing.T) {
	material := "C45K"
	scripted := &oracle.ScriptedOracle{}
	scripted.QueueVerdict(&oracle.Verdict{
		IsCorrect:  false,
		Confidence: 0.85,
		Correction: &rfq.ItemPatch{Config: &rfq.ItemConfig{Material: material}},
		Reason:     "material read from code",
	}, nil)

	orch := New(scripted, testValidationConfig(), logging.NewNop())
	out := orch.Run(context.Background(), []rfq.RequestedItem{scoredItem(1, 0.55)}, "")

	require.Len(t, out, 1)
	assert.Equal(t, rfq.StatusAutoCorrected, out[0].Metadata.Status)
	assert.Equal(t, material, out[0].Config.Material)
	assert.Equal(t, "Passfeder DIN 6885", out[0].ArticleName, "unpatched fields keep original values")
}

func TestRunFlagsLowConfidenceCorrection(t *testing.T) {
	scripted := &oracle.ScriptedOracle{}
	scripted.QueueVerdict(&oracle.Verdict{
		IsCorrect:  false,
		Confidence: 0.3,
		Correction: &rfq.ItemPatch{Config: &rfq.ItemConfig{Material: "1.4301"}},
	}, nil)

	orch := New(scripted, testValidationConfig(), logging.NewNop())
	out := orch.Run(context.Background(), []rfq.RequestedItem{scoredItem(1, 0.55)}, "")

	require.Len(t, out, 1)
	assert.Equal(t, rfq.StatusFlagged, out[0].Metadata.Status)
	assert.Empty(t, out[0].Config.Material, "low-confidence correction must not be applied")
}

func TestRunFlagsOnEmptyCorrection(t *testing.T) {
	scripted := &oracle.ScriptedOracle{}
	scripted.QueueVerdict(&oracle.Verdict{IsCorrect: false, Confidence: 0.9}, nil)

	orch := New(scripted, testValidationConfig(), logging.NewNop())
	out := orch.Run(context.Background(), []rfq.RequestedItem{scoredItem(1, 0.55)}, "")
	assert.Equal(t, rfq.StatusFlagged, out[0].Metadata.Status)
}

func TestRunFlagsOnOracleFailure(t *testing.T) {
	// Verdicts keyed by pos: fan-out order is unspecified, so an ordered
	// queue would race on which item consumes the error.
	scripted := &oracle.ScriptedOracle{}
	scripted.QueueVerdictFor(1, nil, oracle.ErrUnavailable)
	scripted.QueueVerdictFor(2, &oracle.Verdict{IsCorrect: true, Confidence: 1}, nil)

	orch := New(scripted, testValidationConfig(), logging.NewNop())
	items := []rfq.RequestedItem{scoredItem(1, 0.55), scoredItem(2, 0.60)}

	out := orch.Run(context.Background(), items, "")
	require.Len(t, out, 2)
	assert.Equal(t, rfq.StatusFlagged, out[0].Metadata.Status)
	assert.Equal(t, "Passfeder DIN 6885", out[0].ArticleName, "failed item keeps pre-verification values")
	assert.Equal(t, rfq.StatusVerifiedCorrect, out[1].Metadata.Status)
}

func TestRunPassesFeedbackThrough(t *testing.T) {
	scripted := &oracle.ScriptedOracle{}
	orch := New(scripted, testValidationConfig(), logging.NewNop())

	orch.Run(context.Background(), []rfq.RequestedItem{scoredItem(1, 0.55)}, "units are meters")

	calls := scripted.VerifyCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "units are meters", calls[0].Feedback)
}

// gateOracle records the peak number of in-flight Verify calls.
type gateOracle struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	release  chan struct{}
	started  chan struct{}
}

func (g *gateOracle) Extract(ctx context.Context, req oracle.ExtractRequest) (*oracle.Extraction, error) {
	return &oracle.Extraction{}, nil
}

func (g *gateOracle) Verify(ctx context.Context, req oracle.VerifyRequest) (*oracle.Verdict, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	g.started <- struct{}{}
	<-g.release
	return &oracle.Verdict{IsCorrect: true, Confidence: 1}, nil
}

func TestRunBoundsConcurrency(t *testing.T) {
	cfg := testValidationConfig()
	cfg.MaxConcurrent = 2

	gate := &gateOracle{release: make(chan struct{}), started: make(chan struct{}, 8)}

	orch := New(gate, cfg, logging.NewNop())
	items := make([]rfq.RequestedItem, 6)
	for i := range items {
		items[i] = scoredItem(i+1, 0.60)
	}

	done := make(chan []rfq.RequestedItem)
	go func() { done <- orch.Run(context.Background(), items, "") }()

	<-gate.started // two calls in flight, the rest blocked on the semaphore
	<-gate.started
	close(gate.release)

	out := <-done
	assert.LessOrEqual(t, gate.peak.Load(), int32(2))
	for _, item := range out {
		assert.Equal(t, rfq.StatusVerifiedCorrect, item.Metadata.Status)
	}
}
