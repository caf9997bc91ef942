package export

import (
	"fmt"
	"strings"

	"gdd-orchestrator/internal/domain"
)

type mdWriter struct {
	lines []string
}

func (w *mdWriter) line(format string, args ...any) {
	if len(args) == 0 {
		w.lines = append(w.lines, format)
		return
	}
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func (w *mdWriter) blank() { w.lines = append(w.lines, "") }

func (w *mdWriter) heading(level int, text string) {
	w.line(strings.Repeat("#", level) + " " + text)
	w.blank()
}

func (w *mdWriter) bullets(items []string) {
	for _, it := range items {
		w.line("- " + it)
	}
}

func Markdown(d domain.Document) string {
	w := &mdWriter{}
	w.heading(1, d.Meta.Title)
	if d.Meta.ElevatorPitch != nil && *d.Meta.ElevatorPitch != "" {
		w.line("> " + *d.Meta.ElevatorPitch)
		w.blank()
	}

	w.heading(2, "Overview")
	w.line("**Genres:** %s", join(d.Meta.Genres))
	w.line("**Platforms:** %s", join(d.Meta.TargetPlatforms))
	w.line("**Target Audience:** %s", d.Meta.TargetAudience)
	w.line("**Estimated Dev Time:** %d weeks", d.Meta.EstimatedDevTimeWeeks)
	w.blank()
	w.heading(3, "Unique Selling Point")
	w.line(d.Meta.UniqueSellingPoint)
	w.blank()

	w.heading(2, "Core Loop")
	w.line("**Primary Actions:** %s", strings.Join(d.CoreLoop.PrimaryActions, ", "))
	w.line("**Session Length:** %d minutes", d.CoreLoop.SessionLengthMinutes)
	w.blank()
	w.heading(3, "Challenge")
	w.line(d.CoreLoop.ChallengeDescription)
	w.blank()
	w.heading(3, "Rewards")
	w.line(d.CoreLoop.RewardDescription)
	w.blank()
	w.heading(3, "Loop Description")
	w.line(d.CoreLoop.LoopDescription)
	w.blank()

	w.heading(2, "Game Systems")
	for i, s := range d.Systems {
		w.heading(3, fmt.Sprintf("%d. %s (%s)", i+1, s.Name, s.Type))
		w.line(s.Description)
		w.blank()
		if len(s.Mechanics) > 0 {
			w.line("**Mechanics:**")
			w.bullets(s.Mechanics)
			w.blank()
		}
		if len(s.Parameters) > 0 {
			w.line("**Parameters:**")
			for _, p := range s.Parameters {
				w.line("- `%s`: %s", p.Name, p.Description)
			}
			w.blank()
		}
	}

	w.heading(2, "Progression")
	w.line("**Type:** %s", d.Progression.Type)
	w.blank()
	w.line(d.Progression.DifficultyCurveDescription)
	w.blank()
	w.heading(3, "Milestones")
	for _, m := range d.Progression.Milestones {
		w.line("- **%s**: %s", m.Name, m.Description)
	}
	w.blank()

	w.heading(2, "Narrative")
	w.line("**Setting:** %s", d.Narrative.Setting)
	w.blank()
	w.heading(3, "Story Premise")
	w.line(d.Narrative.StoryPremise)
	w.blank()
	w.line("**Themes:** %s", strings.Join(d.Narrative.Themes, ", "))
	w.blank()
	if len(d.Narrative.Characters) > 0 {
		w.heading(3, "Characters")
		for _, c := range d.Narrative.Characters {
			w.line("- **%s** (%s): %s", c.Name, c.Role, c.Description)
		}
		w.blank()
	}

	w.heading(2, "Technical Specifications")
	w.line("**Recommended Engine:** %s", d.Technical.RecommendedEngine)
	w.line("**Art Style:** %s", d.Technical.ArtStyle)
	w.blank()
	w.heading(3, "Key Technologies")
	w.bullets(d.Technical.KeyTechnologies)
	w.blank()
	if len(d.Technical.PerformanceTargets) > 0 {
		w.heading(3, "Performance Targets")
		for _, t := range d.Technical.PerformanceTargets {
			w.line("- **%s:** %d FPS, %s, %dMB RAM", t.Platform, t.TargetFPS, t.MinResolution, t.MaxRAMMB)
		}
		w.blank()
	}

	if len(d.Risks) > 0 {
		w.heading(2, "Risks")
		for _, r := range d.Risks {
			w.line("- **[%s] %s**: %s", strings.ToUpper(string(r.Severity)), r.Category, r.Description)
			w.line("  - *Mitigation*: %s", r.Mitigation)
		}
		w.blank()
	}

	if h := d.MapHints; h != nil {
		w.heading(2, "Map Generation Hints")
		w.line("**Size:** %s", h.MapSize)
		w.line("**Style:** %s", h.GenerationStyle)
		w.line("**Connectivity:** %s", h.Connectivity)
		w.blank()
		w.line("```")
		w.line("/Map " + h.MapCommandArgs())
		w.line("```")
		w.blank()
	}

	w.line("---")
	w.blank()
	if d.GeneratedAt != "" {
		w.line("*Generated: %s*", d.GeneratedAt)
	}
	w.line("*Schema Version: %s*", d.SchemaVersion)
	return strings.Join(w.lines, "\n")
}

// GeneratorPrompt condenses a document into a text prompt for a browser game generator.
func GeneratorPrompt(d domain.Document) string {
	w := &mdWriter{}
	w.line("Create a browser game called '%s'.", d.Meta.Title)
	w.blank()
	w.line("Genre: %s", join(d.Meta.Genres))
	w.blank()
	if d.Meta.ElevatorPitch != nil && *d.Meta.ElevatorPitch != "" {
		w.line("Concept: %s", *d.Meta.ElevatorPitch)
		w.blank()
	}

	w.line("GAMEPLAY:")
	w.line("- Primary actions: %s", strings.Join(d.CoreLoop.PrimaryActions, ", "))
	w.line("- Challenge: %s", d.CoreLoop.ChallengeDescription)
	w.line("- Rewards: %s", d.CoreLoop.RewardDescription)
	w.line("- Session length: ~%d minutes", d.CoreLoop.SessionLengthMinutes)
	w.blank()

	w.line("KEY MECHANICS:")
	for _, s := range head(d.Systems, 5) {
		w.line("- %s: %s", s.Name, strings.Join(head(s.Mechanics, 5), ", "))
	}
	w.blank()

	w.line("PROGRESSION:")
	w.line("- Type: %s", d.Progression.Type)
	w.line("- Difficulty curve: %s", clip(d.Progression.DifficultyCurveDescription, 200))
	if len(d.Progression.Milestones) > 0 {
		names := make([]string, 0, 3)
		for _, m := range head(d.Progression.Milestones, 3) {
			names = append(names, m.Name)
		}
		w.line("- Key milestones: %s", strings.Join(names, ", "))
	}
	w.blank()

	w.line("VISUAL STYLE:")
	w.line("- Art style: %s", d.Technical.ArtStyle)
	w.line("- Setting: %s", clip(d.Narrative.Setting, 150))
	w.blank()

	w.line("UNIQUE FEATURES:")
	w.line("- %s", d.Meta.UniqueSellingPoint)
	w.blank()

	w.line("REQUIREMENTS:")
	w.bullets([]string{
		"Must be a single HTML file with embedded CSS and JavaScript",
		"Include score tracking and game over state",
		"Add restart functionality",
		"Show clear controls/instructions to the player",
	})
	return strings.Join(w.lines, "\n")
}

func join[T ~string](values []T) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, string(v))
	}
	return strings.Join(parts, ", ")
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
