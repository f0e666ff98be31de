package extractor

import (
	"fmt"

	"github.com/patrickkidd/ccmemory/pkg/types"
)

const detectionSystemPrompt = `You analyze a software development conversation and extract durable facts worth remembering across sessions. Respond with a JSON array only, no prose. Each element must include a "confidence" number between 0 and 1 and an optional "topics" array of short lowercase tags. Return [] when nothing qualifies.`

var detectionPrompts = map[types.FactType]string{
	types.FactDecision: `Extract decisions: choices made about architecture, tooling, process, or approach.
Each element: {"description": string, "rationale": string, "revisit_trigger": string, "confidence": number, "topics": [string]}`,

	types.FactCorrection: `Extract corrections: places where the user corrected a wrong belief or assumption.
Each element: {"wrong_belief": string, "right_belief": string, "severity": string, "confidence": number, "topics": [string]}`,

	types.FactException: `Extract exceptions: sanctioned breaks of an established rule or convention.
Each element: {"rule_broken": string, "justification": string, "scope": string, "confidence": number, "topics": [string]}`,

	types.FactInsight: `Extract insights: realizations about the codebase, domain, or process worth keeping.
Each element: {"category": string, "summary": string, "implications": string, "confidence": number, "topics": [string]}`,

	types.FactQuestion: `Extract open or answered questions that matter beyond this session.
Each element: {"question": string, "answer": string, "context": string, "confidence": number, "topics": [string]}`,

	types.FactFailedApproach: `Extract failed approaches: things that were tried and abandoned.
Each element: {"approach": string, "outcome": string, "lesson": string, "confidence": number, "topics": [string]}`,

	types.FactProject: `Extract project facts: conventions, tools, patterns, or constraints of this project.
Each element: {"category": string, "statement": string, "confidence": number, "topics": [string]}`,
}

// detectableTypes lists the fact types with an LLM detection prompt.
// References are detected by regex, not by the model.
func detectableTypes() []types.FactType {
	out := make([]types.FactType, 0, len(detectionPrompts))
	for _, ft := range types.AllFactTypes() {
		if _, ok := detectionPrompts[ft]; ok {
			out = append(out, ft)
		}
	}
	return out
}

func userPrompt(ft types.FactType, text string) string {
	return fmt.Sprintf("%s\n\nConversation:\n%s", detectionPrompts[ft], text)
}
