package oracle

import (
	"context"
	"sync"
)

// ScriptedOracle is a test double that replays queued extraction and
// verification results in order. The zero value returns empty results.
type ScriptedOracle struct {
	mu sync.Mutex

	extractions   []scriptedExtraction
	verdicts      []scriptedVerdict
	verdictsByPos map[int]scriptedVerdict

	extractCalls []ExtractRequest
	verifyCalls  []VerifyRequest
}

type scriptedExtraction struct {
	result *Extraction
	err    error
}

type scriptedVerdict struct {
	verdict *Verdict
	err     error
}

// QueueExtraction appends an extraction result to be returned by the next
// unconsumed Extract call.
func (s *ScriptedOracle) QueueExtraction(result *Extraction, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extractions = append(s.extractions, scriptedExtraction{result: result, err: err})
}

// QueueVerdict appends a verification result to be returned by the next
// unconsumed Verify call.
func (s *ScriptedOracle) QueueVerdict(verdict *Verdict, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts = append(s.verdicts, scriptedVerdict{verdict: verdict, err: err})
}

// QueueVerdictFor registers a verification result keyed to the item's pos.
// Pos-keyed verdicts take precedence over the ordered queue, which keeps
// assertions deterministic under concurrent verification fan-out.
func (s *ScriptedOracle) QueueVerdictFor(pos int, verdict *Verdict, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verdictsByPos == nil {
		s.verdictsByPos = make(map[int]scriptedVerdict)
	}
	s.verdictsByPos[pos] = scriptedVerdict{verdict: verdict, err: err}
}

func (s *ScriptedOracle) Extract(ctx context.Context, req ExtractRequest) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extractCalls = append(s.extractCalls, req)
	if len(s.extractions) == 0 {
		return &Extraction{}, nil
	}
	next := s.extractions[0]
	s.extractions = s.extractions[1:]
	return next.result, next.err
}

func (s *ScriptedOracle) Verify(ctx context.Context, req VerifyRequest) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifyCalls = append(s.verifyCalls, req)
	if next, ok := s.verdictsByPos[req.Item.Pos]; ok {
		return next.verdict, next.err
	}
	if len(s.verdicts) == 0 {
		return &Verdict{IsCorrect: true, Confidence: 1}, nil
	}
	next := s.verdicts[0]
	s.verdicts = s.verdicts[1:]
	return next.verdict, next.err
}

// ExtractCalls returns a copy of the extract requests seen so far.
func (s *ScriptedOracle) ExtractCalls() []ExtractRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ExtractRequest, len(s.extractCalls))
	copy(out, s.extractCalls)
	return out
}

// VerifyCalls returns a copy of the verify requests seen so far.
func (s *ScriptedOracle) VerifyCalls() []VerifyRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]VerifyRequest, len(s.verifyCalls))
	copy(out, s.verifyCalls)
	return out
}

var _ Oracle = (*ScriptedOracle)(nil)
