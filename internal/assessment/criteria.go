package assessment

import (
	"embed"
	"fmt"
	"strings"

	"github.com/spigell/interview-judge/internal/interview"
)

//go:embed prompts/*.md
var prompts embed.FS

// criterionPrompt is the fixed prompt material of one criterion. An entry without a system prompt
// is a stub that never reaches the model.
type criterionPrompt struct {
	system       string
	summaryLabel string
}

var criteria = map[interview.Criterion]criterionPrompt{
	interview.Knowledge: {
		system:       mustPrompt("knowledge.md"),
		summaryLabel: "Summary on knowledge of candidate",
	},
	interview.Focus: {
		system:       mustPrompt("focus.md"),
		summaryLabel: "Summary on focus on response to the task",
	},
	interview.Independence: {
		system:       mustPrompt("independence.md"),
		summaryLabel: "Summary on independence and discipline of the candidate",
	},
	interview.Factuality: {
		// Fact checking against external sources is not wired in; the model judges the
		// transcript on its own.
		system:       mustPrompt("factuality.md"),
		summaryLabel: "Summary on factuality of the response",
	},
	interview.Accuracy: {
		// Stub: accuracy needs a search + retrieval fact-check loop that does not exist.
		// Evaluate returns interview.NoData for it without calling the model.
		summaryLabel: "Summary on accuracy of statements",
	},
}

var (
	criterionUserTemplate = mustPrompt("criterion_user.md")
	summarySystem         = mustPrompt("summary.md")
)

func mustPrompt(name string) string {
	data, err := prompts.ReadFile("prompts/" + name)
	if err != nil {
		panic(fmt.Sprintf("missing embedded prompt %s: %v", name, err))
	}
	return strings.TrimSpace(string(data))
}

func buildCriterionMessage(task, transcript string) string {
	message := strings.ReplaceAll(criterionUserTemplate, "{{TASK}}", task)
	return strings.ReplaceAll(message, "{{TRANSCRIPT}}", transcript)
}

// buildSummaryMessage renders one slot per criterion in interview.Criteria order.
func buildSummaryMessage(a *interview.Assessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The candidate was tasked with: %q\n", a.Task)
	for _, c := range interview.Criteria {
		fmt.Fprintf(&b, "%s: ```%s```\n", criteria[c].summaryLabel, a.JudgmentOrNoData(c))
	}
	return strings.TrimRight(b.String(), "\n")
}
