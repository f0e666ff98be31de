package extractor

import (
	"bufio"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

var decisionLogHeading = regexp.MustCompile(`^##\s+(\d{4}-\d{2}-\d{2}):\s*(.+?)\s*$`)

// ParseDecisionLog reads a hand-kept decision log in markdown form, one
// entry per `## YYYY-MM-DD: title` heading, and returns each entry as a
// decision candidate. Body lines under a heading become the rationale.
// Entries whose date does not parse are skipped.
func ParseDecisionLog(project, owner, markdown string) []Candidate {
	var out []Candidate
	var current *Candidate
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Fact.Decision.Rationale = strings.TrimSpace(strings.Join(body, "\n"))
		out = append(out, *current)
		current = nil
		body = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := decisionLogHeading.FindStringSubmatch(line); m != nil {
			flush()
			ts, err := time.Parse("2006-01-02", m[1])
			if err != nil {
				continue
			}
			current = &Candidate{
				Fact: types.Fact{
					ID:                  uuid.NewString(),
					Project:             project,
					Owner:               owner,
					Type:                types.FactDecision,
					Status:              types.StatusDevelopmental,
					Timestamp:           ts.UTC(),
					Decision:            &types.Decision{Description: m[2]},
					DetectionConfidence: 1.0,
					DetectionMethod:     "backfill_import",
				},
				Confidence: 1.0,
				Method:     "backfill_import",
			}
			continue
		}
		if current != nil && !strings.HasPrefix(line, "#") {
			body = append(body, line)
		}
	}
	flush()
	return out
}
