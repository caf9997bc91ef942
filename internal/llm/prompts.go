package llm

import (
	"strings"

	"gdd-orchestrator/internal/domain"
)

const ActorSystem = `You are a senior game designer writing Game Design Documents.
You must output ONLY valid JSON and nothing else.
No markdown. No comments. No surrounding text.
Every field must respect the length and range hints in the schema.
Include at least 3 systems and at least 5 progression milestones.`

const ActorUserTemplate = `Write a complete Game Design Document for the concept below.
Return JSON that matches the schema outline exactly.

Schema outline:
{{JSON_SCHEMA}}

Game concept:
{{CONCEPT}}

Return JSON only.`

const RevisionUserTemplate = `Revise the Game Design Document below so that every blocking issue raised by the reviewer is fixed.
Keep everything that was not criticised. Return the full revised document, not a diff.

Schema outline:
{{JSON_SCHEMA}}

Game concept:
{{CONCEPT}}

Previous document:
{{PREVIOUS_GDD}}

Reviewer feedback:
{{FEEDBACK}}

Return the revised JSON only.`

const CriticSystem = `You are a lead game designer reviewing Game Design Documents.
Score feasibility, coherence, fun factor, completeness and originality from 1 to 10.
Approve only when there is no critical issue. Every blocking issue needs an actionable suggestion.
You must output ONLY valid JSON and nothing else.`

const CriticUserTemplate = `Review the Game Design Document written for the concept below.

Feedback schema:
{{JSON_SCHEMA}}

Game concept:
{{CONCEPT}}

Document under review:
{{GDD}}

Return JSON only.`

func RenderTemplate(tpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

func BuildActorUserPrompt(concept string) string {
	return RenderTemplate(ActorUserTemplate, map[string]string{
		"JSON_SCHEMA": domain.DocumentJSONSchema,
		"CONCEPT":     concept,
	})
}

func BuildRevisionUserPrompt(concept string, previous domain.Document, feedback domain.Feedback) string {
	return RenderTemplate(RevisionUserTemplate, map[string]string{
		"JSON_SCHEMA":  domain.DocumentJSONSchema,
		"CONCEPT":      concept,
		"PREVIOUS_GDD": previous.JSON(),
		"FEEDBACK":     feedback.ToActorFeedback(),
	})
}

func BuildCriticUserPrompt(concept string, doc domain.Document) string {
	return RenderTemplate(CriticUserTemplate, map[string]string{
		"JSON_SCHEMA": domain.FeedbackJSONSchema,
		"CONCEPT":     concept,
		"GDD":         doc.JSON(),
	})
}
