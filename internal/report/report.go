// Copyright 2025 smart-bench-go
//
// Package report implements the reporter (C8): it prints each block's
// stats line as it arrives and computes the sTPS figure once the
// reconciliation stream ends.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/smart-bench-go/smart-bench/internal/chain"
)

// fallbackBlockTimeSeconds is used when the chain omitted timestamps or
// returned identical values for the first and last call-bearing block.
const fallbackBlockTimeSeconds = 12.0

// Reporter accumulates BlockInfo rows, printing a formatted line for
// each and computing sTPS once the stream is drained.
type Reporter struct {
	out     io.Writer
	json    bool
	targets map[chain.Hash]struct{}

	blocks []chain.BlockInfo
}

// New builds a Reporter. targets is the full set of submission hashes
// this run is tracking, used to tell a "target-call" block from one
// carrying only unrelated chain traffic.
func New(out io.Writer, emitJSON bool, targets map[chain.Hash]struct{}) *Reporter {
	return &Reporter{out: out, json: emitJSON, targets: targets}
}

// jsonLine is the optional structured line emitted alongside the
// formatted text line when JSON output is enabled.
type jsonLine struct {
	Number           uint64  `json:"number"`
	PoVSizeBytes     uint64  `json:"pov_size_bytes"`
	PoVSizePercent   float64 `json:"pov_size_percent"`
	RefTimeNanos     uint64  `json:"ref_time_nanos"`
	RefTimePercent   float64 `json:"ref_time_percent"`
	ProofSizeBytes   uint64  `json:"proof_size_bytes"`
	ProofSizePercent float64 `json:"proof_size_percent"`
	WitnessSizeBytes uint64  `json:"witness_size_bytes"`
	TotalSizeBytes   uint64  `json:"total_size_bytes"`
	NumExtrinsics    int     `json:"num_extrinsics"`
}

// Observe prints info's formatted line (and, if enabled, its JSON
// line) and records it for the final sTPS computation.
func (r *Reporter) Observe(info chain.BlockInfo) error {
	r.blocks = append(r.blocks, info)

	if _, err := fmt.Fprintln(r.out, FormatLine(info.Stats)); err != nil {
		return fmt.Errorf("report: write block line: %w", err)
	}
	if r.json {
		line := jsonLine{
			Number:           info.Stats.Number,
			PoVSizeBytes:     info.Stats.PoVSizeBytes,
			PoVSizePercent:   info.Stats.PoVSizePercent,
			RefTimeNanos:     info.Stats.RefTimeNanos,
			RefTimePercent:   info.Stats.RefTimePercent,
			ProofSizeBytes:   info.Stats.ProofSizeBytes,
			ProofSizePercent: info.Stats.ProofSizePercent,
			WitnessSizeBytes: info.Stats.WitnessSizeBytes,
			TotalSizeBytes:   info.Stats.TotalSizeBytes,
			NumExtrinsics:    info.Stats.NumExtrinsics,
		}
		enc, err := json.Marshal(line)
		if err != nil {
			return fmt.Errorf("report: marshal json line: %w", err)
		}
		if _, err := fmt.Fprintln(r.out, string(enc)); err != nil {
			return fmt.Errorf("report: write json line: %w", err)
		}
	}
	return nil
}

// FormatLine renders one BlockStats row in the fixed text format:
// "<n>: PoV Size=<kib>KiB(<pct>%) Weight RefTime=<ms>ms(<pct>%) Weight
// ProofSize=<kib>KiB(<pct>%) Witness=<kib>KiB Block=<kib>KiB
// NumExtrinsics=<k>".
func FormatLine(s chain.BlockStats) string {
	return fmt.Sprintf(
		"%d: PoV Size=%.2fKiB(%.2f%%) Weight RefTime=%.2fms(%.2f%%) Weight ProofSize=%.2fKiB(%.2f%%) Witness=%.2fKiB Block=%.2fKiB NumExtrinsics=%d",
		s.Number,
		bytesToKiB(s.PoVSizeBytes), s.PoVSizePercent,
		nanosToMillis(s.RefTimeNanos), s.RefTimePercent,
		bytesToKiB(s.ProofSizeBytes), s.ProofSizePercent,
		bytesToKiB(s.WitnessSizeBytes),
		bytesToKiB(s.TotalSizeBytes),
		s.NumExtrinsics,
	)
}

func bytesToKiB(b uint64) float64 {
	return float64(b) / 1024
}

func nanosToMillis(n uint64) float64 {
	return float64(n) / 1e6
}

// Finish computes and prints the final sTPS figure (or the
// not-enough-data advisory when the trimmed call-bearing window is
// empty: no call-bearing block, or only the dropped tail block).
func (r *Reporter) Finish() error {
	callBlocks := r.trimmedCallBlocks()
	if len(callBlocks) == 0 {
		_, err := fmt.Fprintln(r.out, "not enough data: increase --call-count and try again")
		return err
	}

	totalCalls := 0
	for _, b := range callBlocks {
		totalCalls += len(r.targetHashesIn(b))
	}
	nBlocks := len(callBlocks)

	blockTimeS := fallbackBlockTimeSeconds
	if nBlocks > 1 {
		first := callBlocks[0].TimestampMs
		last := callBlocks[nBlocks-1].TimestampMs
		if last > first {
			blockTimeS = float64(last-first) / (float64(nBlocks-1) * 1000)
		}
	}

	sTPS := float64(totalCalls) / (float64(nBlocks) * blockTimeS)
	_, err := fmt.Fprintf(r.out, "sTPS=%.2f (calls=%d blocks=%d block_time_s=%.3f)\n", sTPS, totalCalls, nBlocks, blockTimeS)
	return err
}

// trimmedCallBlocks is the contiguous run of reported blocks starting
// at the first block containing a target-call hash, with its final
// (underfilled) element dropped.
func (r *Reporter) trimmedCallBlocks() []chain.BlockInfo {
	start := -1
	for i, b := range r.blocks {
		if len(r.targetHashesIn(b)) > 0 {
			start = i
			break
		}
	}
	if start == -1 {
		return nil
	}
	callBlocks := r.blocks[start:]
	if len(callBlocks) <= 1 {
		return nil
	}
	return callBlocks[:len(callBlocks)-1]
}

func (r *Reporter) targetHashesIn(b chain.BlockInfo) []chain.Hash {
	var out []chain.Hash
	for h := range b.Hashes {
		if _, ok := r.targets[h]; ok {
			out = append(out, h)
		}
	}
	return out
}
