// Package anonymise redacts PII in open text and tabular files. Detection
// reuses the document pipeline's detectors; this package owns span
// replacement and the per-cell traversal of CSV and XLSX inputs.
package anonymise

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/docsweep/docsweep/internal/detect"
)

// Strategy selects how a detected span is rewritten.
type Strategy string

const (
	// StrategyRedact replaces the span with the literal REDACTED.
	StrategyRedact Strategy = "redact"
	// StrategyEntityName replaces the span with its entity type in brackets.
	StrategyEntityName Strategy = "entity"
	// StrategyMask replaces each rune of the span with an asterisk.
	StrategyMask Strategy = "mask"
	// StrategyHash replaces the span with a short stable content hash.
	StrategyHash Strategy = "hash"
	// StrategyDrop deletes the span.
	StrategyDrop Strategy = "drop"
)

// Anonymiser rewrites PII spans found by the configured detector and deny
// list.
type Anonymiser struct {
	Detector detect.Detector
	Deny     *detect.DenyList
	Strategy Strategy
}

// Text anonymises one string and returns the rewritten text plus the
// entities acted on.
func (a *Anonymiser) Text(ctx context.Context, text string) (string, []detect.Entity, error) {
	if text == "" {
		return "", nil, nil
	}

	var entities []detect.Entity
	if a.Detector != nil {
		found, err := a.Detector.Detect(ctx, text)
		if err != nil {
			return "", nil, fmt.Errorf("detect: %w", err)
		}
		entities = found
	}
	if a.Deny != nil {
		entities = append(entities, a.Deny.Detect(text)...)
	}
	if len(entities) == 0 {
		return text, nil, nil
	}

	spans := mergeSpans(entities)

	// Rewrite right to left so earlier offsets stay valid.
	runes := []rune(text)
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		if s.Start < 0 || s.End > len(runes) || s.Start >= s.End {
			continue
		}
		repl := []rune(a.replacement(s))
		runes = append(runes[:s.Start], append(repl, runes[s.End:]...)...)
	}
	return string(runes), spans, nil
}

func (a *Anonymiser) replacement(e detect.Entity) string {
	switch a.Strategy {
	case StrategyEntityName:
		return "[" + string(e.Type) + "]"
	case StrategyMask:
		return strings.Repeat("*", len([]rune(e.Text)))
	case StrategyHash:
		sum := sha256.Sum256([]byte(e.Text))
		return hex.EncodeToString(sum[:])[:12]
	case StrategyDrop:
		return ""
	default:
		return "REDACTED"
	}
}

// mergeSpans sorts entities by start offset and collapses overlaps, keeping
// the first entity's type for a merged span.
func mergeSpans(entities []detect.Entity) []detect.Entity {
	sorted := make([]detect.Entity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End > sorted[j].End
	})

	var out []detect.Entity
	for _, e := range sorted {
		if n := len(out); n > 0 && e.Start < out[n-1].End {
			if e.End > out[n-1].End {
				out[n-1].End = e.End
			}
			continue
		}
		out = append(out, e)
	}
	return out
}
