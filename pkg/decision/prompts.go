package decision

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zen-systems/fanroute/pkg/dispatch"
	"github.com/zen-systems/fanroute/pkg/stats"
)

// taskCategories is the open-ended label set offered to the categorizer.
var taskCategories = []string{"coding", "reasoning", "creative", "analysis", "general", "simple"}

func (m *Maker) buildRoutingPrompt(userPrompt string, summary stats.Summary) string {
	var sb strings.Builder
	sb.WriteString("You are an AI model router. Analyze the user prompt and pick the model best suited to handle it.\n\n")
	sb.WriteString("Available models:\n")

	for i, key := range m.registry.Keys() {
		profile, _ := m.registry.Get(key)
		sb.WriteString(fmt.Sprintf("%d. %s (key: %s): %s\n",
			i+1, profile.Name, profile.Key, strings.Join(profile.Strengths, ", ")))
	}

	if block := formatAdvisoryBlock(summary); block != "" {
		sb.WriteString("\nHistorical wins per task category (advisory only, do not treat as binding):\n")
		sb.WriteString(block)
	}

	sb.WriteString("\nUser prompt:\n\"")
	sb.WriteString(userPrompt)
	sb.WriteString("\"\n\n")
	sb.WriteString("Respond with ONLY a JSON object in this exact format:\n")
	sb.WriteString("{\"model\": \"<model key>\", \"reasoning\": \"brief explanation\", \"confidence\": 0.0 to 1.0}\n\n")
	sb.WriteString("Consider task complexity and type, required capabilities, expected response length, and the need for creativity vs precision.\n")
	return sb.String()
}

// formatAdvisoryBlock renders the win histogram in a stable order so routing
// prompts are reproducible for identical histories.
func formatAdvisoryBlock(summary stats.Summary) string {
	if len(summary) == 0 {
		return ""
	}

	categories := make([]string, 0, len(summary))
	for category := range summary {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var sb strings.Builder
	for _, category := range categories {
		wins := summary[category]
		keys := make([]string, 0, len(wins))
		for key := range wins {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%d", key, wins[key]))
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", category, strings.Join(parts, ", ")))
	}
	return sb.String()
}

func buildCategorizePrompt(userPrompt string) string {
	var sb strings.Builder
	sb.WriteString("Label this task for performance tracking.\n\n")
	sb.WriteString("User prompt:\n\"")
	sb.WriteString(userPrompt)
	sb.WriteString("\"\n\n")
	sb.WriteString("Respond with ONLY a JSON object:\n")
	sb.WriteString("{\"task_name\": \"short descriptive label\", \"task_category\": \"one of: ")
	sb.WriteString(strings.Join(taskCategories, ", "))
	sb.WriteString("\"}\n")
	return sb.String()
}

func buildScoringPrompt(userPrompt string, candidates []dispatch.Candidate) string {
	var sb strings.Builder
	sb.WriteString("Score each model's response to the prompt on quality, from 0 (unusable) to 10 (excellent).\n\n")
	sb.WriteString("Original prompt:\n\"")
	sb.WriteString(userPrompt)
	sb.WriteString("\"\n")
	writeCandidateSections(&sb, candidates)
	sb.WriteString("\nRespond with ONLY a JSON object:\n")
	sb.WriteString("{\"scores\": {\"<model name>\": <0-10 integer>, ...}, \"brief_reasoning\": \"one or two sentences\"}\n")
	return sb.String()
}

func buildEvaluationPrompt(userPrompt string, candidates []dispatch.Candidate) string {
	var sb strings.Builder
	sb.WriteString("Compare the model responses below and decide which one answers the prompt best.\n\n")
	sb.WriteString("Original prompt:\n\"")
	sb.WriteString(userPrompt)
	sb.WriteString("\"\n")
	writeCandidateSections(&sb, candidates)
	sb.WriteString("\nRespond with ONLY a JSON object:\n")
	sb.WriteString("{\"best_model\": \"<model name>\", \"ranking\": [\"<best>\", \"<second>\", ...], \"reasoning\": \"brief explanation\"}\n")
	sb.WriteString("best_model must be exactly one of the model names shown above.\n")
	return sb.String()
}

func buildSynthesisPrompt(userPrompt string, candidates []dispatch.Candidate) string {
	var sb strings.Builder
	sb.WriteString("Several models answered the same prompt. Merge their responses into one coherent answer that:\n")
	sb.WriteString("1. Keeps the strongest points from each response\n")
	sb.WriteString("2. Resolves contradictions in favor of the better-supported claim\n")
	sb.WriteString("3. Reads as a single voice, not a comparison of sources\n\n")
	sb.WriteString("Original prompt:\n\"")
	sb.WriteString(userPrompt)
	sb.WriteString("\"\n")
	writeCandidateSections(&sb, candidates)
	sb.WriteString("\nReturn only the merged answer, with no preamble about the source responses.\n")
	return sb.String()
}

func writeCandidateSections(sb *strings.Builder, candidates []dispatch.Candidate) {
	for i, c := range candidates {
		sb.WriteString(fmt.Sprintf("\n[Response %d: %s]\n", i+1, c.ModelName))
		sb.WriteString(c.Response)
		sb.WriteString("\n")
	}
}
