// Package verify drives the secondary oracle pass for items whose rule
// confidence landed in the verification band.
package verify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rfqworks/rfqd/internal/config"
	"github.com/rfqworks/rfqd/internal/logging"
	"github.com/rfqworks/rfqd/internal/oracle"
	"github.com/rfqworks/rfqd/internal/rfq"
)

// correctionConfidenceFloor is the minimum verifier confidence required to
// apply a proposed correction instead of flagging the item.
const correctionConfidenceFloor = 0.5

// Orchestrator escalates band items to the verifier oracle and resolves each
// into exactly one terminal status. No recursion: a corrected item is never
// re-verified.
type Orchestrator struct {
	oracle        oracle.Oracle
	floor         float64
	threshold     float64
	maxConcurrent int
	logger        *logging.Logger
}

// New creates an orchestrator using the validation band from cfg.
func New(o oracle.Oracle, cfg config.ValidationConfig, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		oracle:        o,
		floor:         cfg.VerifyFloor,
		threshold:     cfg.AcceptThreshold,
		maxConcurrent: maxConcurrent,
		logger:        logger.Named("verify"),
	}
}

// NeedsVerification reports whether a rule confidence score falls in the
// verification band [floor, threshold). Scores at or above the threshold are
// accepted as-is; scores below the floor pass through unverified for manual
// review.
func (v *Orchestrator) NeedsVerification(score float64) bool {
	return score >= v.floor && score < v.threshold
}

// Run verifies every band item in items and returns a new slice with
// statuses (and any accepted corrections) applied. Items outside the band
// are returned untouched. Verifier calls for distinct items run
// concurrently, bounded by the configured limit; a failed call flags the
// item and never affects the rest of the document.
func (v *Orchestrator) Run(ctx context.Context, items []rfq.RequestedItem, feedback string) []rfq.RequestedItem {
	out := make([]rfq.RequestedItem, len(items))
	copy(out, items)

	var wg sync.WaitGroup
	sem := make(chan struct{}, v.maxConcurrent)
	for i := range out {
		if !v.NeedsVerification(out[i].Metadata.RuleConfidenceScore) {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out[i] = v.verifyOne(ctx, out[i], feedback)
		}(i)
	}
	wg.Wait()
	return out
}

// verifyOne resolves one band item into a terminal status.
func (v *Orchestrator) verifyOne(ctx context.Context, item rfq.RequestedItem, feedback string) rfq.RequestedItem {
	verdict, err := v.oracle.Verify(ctx, oracle.VerifyRequest{
		RawTextSnippet: item.Metadata.RawTextSnippet,
		Item:           item,
		Feedback:       feedback,
	})
	if err != nil {
		v.logger.Warn("verifier call failed, flagging item",
			zap.Int("pos", item.Pos),
			zap.String("article", item.ArticleName),
			zap.Error(err))
		item.Metadata.Status = rfq.StatusFlagged
		return item
	}

	switch {
	case verdict.IsCorrect:
		item.Metadata.Status = rfq.StatusVerifiedCorrect
	case !verdict.Correction.Empty() && verdict.Confidence >= correctionConfidenceFloor:
		item = verdict.Correction.Apply(item)
		item.Metadata.Status = rfq.StatusAutoCorrected
		v.logger.Info("verifier corrected item",
			zap.Int("pos", item.Pos),
			zap.String("article", item.ArticleName),
			zap.Float64("verifier_confidence", verdict.Confidence),
			zap.String("reason", verdict.Reason))
	default:
		item.Metadata.Status = rfq.StatusFlagged
		v.logger.Warn("verifier could not resolve item",
			zap.Int("pos", item.Pos),
			zap.String("article", item.ArticleName),
			zap.Float64("verifier_confidence", verdict.Confidence),
			zap.String("reason", verdict.Reason))
	}
	return item
}
