package extractor

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

var (
	urlPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
	// Paths with at least one slash and a file extension, skipping URLs.
	filePathPattern = regexp.MustCompile(`(?:^|[\s"'(])((?:[\w.-]+/)+[\w.-]+\.\w{1,8})`)
)

// DetectReferences extracts URLs and file paths with plain regex. No model
// call; the matches are near-certain but the context around them is not.
func DetectReferences(project, owner, text string) []Candidate {
	now := time.Now().UTC()
	seen := make(map[string]bool)
	var out []Candidate

	add := func(kind, uri string) {
		if seen[uri] {
			return
		}
		seen[uri] = true
		out = append(out, Candidate{
			Fact: types.Fact{
				ID:                  uuid.NewString(),
				Project:             project,
				Owner:               owner,
				Type:                types.FactReference,
				Timestamp:           now,
				Reference:           &types.Reference{Kind: kind, URI: uri},
				DetectionConfidence: 0.9,
				DetectionMethod:     "regex",
			},
			Confidence: 0.9,
			Method:     "regex",
		})
	}

	for _, m := range urlPattern.FindAllString(text, -1) {
		add("url", m)
	}
	// Strip URLs first so their path components do not match as files.
	withoutURLs := urlPattern.ReplaceAllString(text, " ")
	for _, m := range filePathPattern.FindAllStringSubmatch(withoutURLs, -1) {
		add("file_path", m[1])
	}
	return out
}
