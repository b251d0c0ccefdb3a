// Package corrections persists human corrections to extraction output and
// retrieves them for matching documents so future extraction prompts can be
// biased toward the learned answers.
//
// A correction is keyed by a fingerprint derived from its raw text snippet,
// normalized so whitespace and line-ending noise does not split records.
// Retrieval matches near-duplicates through supplier/format keyword prints
// plus an exact path for documents that contain the corrected snippet
// verbatim. Writes are last-write-wins per fingerprint.
package corrections
