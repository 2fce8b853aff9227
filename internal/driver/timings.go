package driver

import (
	"encoding/json"
	"fmt"
	"io"

	"codespice/internal/observ"
)

type timingPayload struct {
	Kind    string               `json:"kind"`
	Files   int                  `json:"files"`
	Cached  int                  `json:"cached"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// WriteTimings prints the run's per-rule timings. asJSON switches to a
// single JSON object for machine consumers.
func WriteTimings(w io.Writer, res *Result, asJSON bool) error {
	if res == nil || res.Timing == nil {
		return nil
	}
	payload := timingPayload{
		Kind:    "diagnose",
		Files:   len(res.Files),
		Cached:  res.CachedCount(),
		TotalMS: res.Timing.TotalMS,
		Phases:  res.Timing.Phases,
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	if _, err := fmt.Fprintf(w, "timings (%s): %d files, %d cached, total %.2f ms\n",
		payload.Kind, payload.Files, payload.Cached, payload.TotalMS); err != nil {
		return err
	}
	for _, p := range payload.Phases {
		if _, err := fmt.Fprintf(w, "  %-16s %9.2f ms  %5d calls  %5d diags\n", p.Name, p.DurationMS, p.Calls, p.Diagnostics); err != nil {
			return err
		}
	}
	return nil
}
