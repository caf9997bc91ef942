package domain

import (
	"fmt"
	"unicode/utf8"
)

type checker struct {
	violations []Violation
}

func (c *checker) add(path, format string, args ...any) {
	c.violations = append(c.violations, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) text(path, v string, min, max int) {
	n := utf8.RuneCountInString(v)
	if n < min {
		c.add(path, "expected at least %d characters, got %d", min, n)
	} else if max > 0 && n > max {
		c.add(path, "expected at most %d characters, got %d", max, n)
	}
}

func (c *checker) optText(path string, v *string, max int) {
	if v != nil {
		c.text(path, *v, 0, max)
	}
}

func (c *checker) count(path string, n, min, max int) {
	if n < min {
		c.add(path, "expected ≥%d, got %d", min, n)
	} else if max > 0 && n > max {
		c.add(path, "expected ≤%d, got %d", max, n)
	}
}

func (c *checker) number(path string, v, min, max int) {
	if v < min || v > max {
		c.add(path, "expected %d..%d, got %d", min, max, v)
	}
}

func (c *checker) float(path string, v *float64, min, max float64) {
	if v != nil && (*v < min || *v > max) {
		c.add(path, "expected %g..%g, got %g", min, max, *v)
	}
}

func enum[T ~string](c *checker, path string, v T, set map[T]struct{}) {
	if _, ok := set[v]; !ok {
		c.add(path, "unknown value %q", string(v))
	}
}

func (c *checker) err() error {
	if len(c.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: c.violations}
}

// ValidateDocument checks every structural and range constraint of the GDD schema.
// It returns a *ValidationError listing all violations, or nil.
func ValidateDocument(d Document) error {
	c := &checker{}
	validateMeta(c, d.Meta)
	validateCoreLoop(c, d.CoreLoop)

	c.count("systems", len(d.Systems), 3, 0)
	for i, s := range d.Systems {
		p := fmt.Sprintf("systems[%d]", i)
		c.text(p+".name", s.Name, 1, 100)
		enum(c, p+".type", s.Type, systemTypes)
		c.text(p+".description", s.Description, 20, 1000)
		c.count(p+".mechanics", len(s.Mechanics), 1, 20)
		c.count(p+".parameters", len(s.Parameters), 0, 30)
		for j, prm := range s.Parameters {
			pp := fmt.Sprintf("%s.parameters[%d]", p, j)
			c.text(pp+".name", prm.Name, 1, 100)
			c.text(pp+".description", prm.Description, 5, 300)
		}
		c.count(p+".dependencies", len(s.Dependencies), 0, 10)
		c.number(p+".priority", s.Priority, 1, 10)
	}

	validateProgression(c, d.Progression)
	validateNarrative(c, d.Narrative)
	validateTechnical(c, d.Technical)

	if d.MapHints != nil {
		h := d.MapHints
		c.count("map_hints.biomes", len(h.Biomes), 1, 10)
		for i, b := range h.Biomes {
			enum(c, fmt.Sprintf("map_hints.biomes[%d]", i), b, biomes)
		}
		c.count("map_hints.obstacles", len(h.Obstacles), 0, 20)
		c.count("map_hints.special_features", len(h.SpecialFeatures), 0, 20)
	}

	c.count("risks", len(d.Risks), 0, 20)
	for i, r := range d.Risks {
		p := fmt.Sprintf("risks[%d]", i)
		c.text(p+".description", r.Description, 20, 500)
		enum(c, p+".severity", r.Severity, severities)
		c.text(p+".mitigation", r.Mitigation, 10, 500)
		enum(c, p+".likelihood", r.Likelihood, likelihoods)
	}

	c.count("development_tasks", len(d.DevelopmentTasks), 0, 50)
	for i, t := range d.DevelopmentTasks {
		p := fmt.Sprintf("development_tasks[%d]", i)
		c.number(p+".phase", t.Phase, 1, 10)
		c.text(p+".name", t.Name, 3, 100)
		c.text(p+".description", t.Description, 10, 500)
		c.count(p+".requirements", len(t.Requirements), 1, 10)
		c.number(p+".priority", t.Priority, 1, 10)
	}

	c.optText("additional_notes", d.AdditionalNotes, 5000)
	return c.err()
}

func validateMeta(c *checker, m GameMeta) {
	c.text("meta.title", m.Title, 1, 100)
	c.count("meta.genres", len(m.Genres), 1, 5)
	for i, g := range m.Genres {
		enum(c, fmt.Sprintf("meta.genres[%d]", i), g, genres)
	}
	c.count("meta.target_platforms", len(m.TargetPlatforms), 1, 0)
	for i, p := range m.TargetPlatforms {
		enum(c, fmt.Sprintf("meta.target_platforms[%d]", i), p, platforms)
	}
	c.text("meta.target_audience", m.TargetAudience, 10, 500)
	enum(c, "meta.audience_rating", m.AudienceRating, ratings)
	c.text("meta.unique_selling_point", m.UniqueSellingPoint, 20, 500)
	c.number("meta.estimated_dev_time_weeks", m.EstimatedDevTimeWeeks, 1, 520)
	c.number("meta.team_size_estimate", m.TeamSizeEstimate, 1, 500)
	c.optText("meta.elevator_pitch", m.ElevatorPitch, 300)
}

func validateCoreLoop(c *checker, l CoreLoop) {
	c.count("core_loop.primary_actions", len(l.PrimaryActions), 2, 10)
	c.text("core_loop.challenge_description", l.ChallengeDescription, 20, 1000)
	c.text("core_loop.reward_description", l.RewardDescription, 20, 1000)
	c.text("core_loop.loop_description", l.LoopDescription, 20, 1000)
	c.number("core_loop.session_length_minutes", l.SessionLengthMinutes, 1, 480)
	c.count("core_loop.feedback_mechanisms", len(l.FeedbackMechanisms), 0, 20)
	for i, f := range l.FeedbackMechanisms {
		p := fmt.Sprintf("core_loop.feedback_mechanisms[%d]", i)
		c.text(p+".trigger", f.Trigger, 5, 200)
		c.text(p+".response", f.Response, 5, 200)
		c.text(p+".purpose", f.Purpose, 10, 300)
	}
	c.count("core_loop.hook_elements", len(l.HookElements), 0, 10)
}

func validateProgression(c *checker, p Progression) {
	enum(c, "progression.type", p.Type, progressionTypes)
	c.count("progression.milestones", len(p.Milestones), 5, 0)
	for i, m := range p.Milestones {
		mp := fmt.Sprintf("progression.milestones[%d]", i)
		c.text(mp+".name", m.Name, 1, 100)
		c.text(mp+".description", m.Description, 10, 500)
		c.text(mp+".unlock_condition", m.UnlockCondition, 10, 300)
		c.count(mp+".rewards", len(m.Rewards), 0, 10)
		c.float(mp+".estimated_hours", m.EstimatedHours, 0.1, 1000)
	}
	c.text("progression.difficulty_curve_description", p.DifficultyCurveDescription, 20, 1000)
	c.optText("progression.meta_progression_description", p.MetaProgressionDescription, 1000)
}

func validateNarrative(c *checker, n Narrative) {
	c.text("narrative.setting", n.Setting, 10, 1000)
	c.text("narrative.story_premise", n.StoryPremise, 20, 2000)
	c.count("narrative.themes", len(n.Themes), 1, 10)
	c.count("narrative.characters", len(n.Characters), 0, 50)
	for i, ch := range n.Characters {
		p := fmt.Sprintf("narrative.characters[%d]", i)
		c.text(p+".name", ch.Name, 1, 100)
		c.text(p+".description", ch.Description, 20, 1000)
	}
	c.count("narrative.narrative_delivery", len(n.NarrativeDelivery), 1, 0)
	for i, d := range n.NarrativeDelivery {
		enum(c, fmt.Sprintf("narrative.narrative_delivery[%d]", i), d, deliveries)
	}
	c.text("narrative.story_structure", n.StoryStructure, 10, 1000)
	c.count("narrative.key_story_beats", len(n.KeyStoryBeats), 0, 20)
	c.optText("narrative.world_lore", n.WorldLore, 3000)
}

func validateTechnical(c *checker, t TechnicalSpec) {
	enum(c, "technical.recommended_engine", t.RecommendedEngine, engines)
	enum(c, "technical.art_style", t.ArtStyle, artStyles)
	c.count("technical.key_technologies", len(t.KeyTechnologies), 1, 20)
	c.count("technical.performance_targets", len(t.PerformanceTargets), 0, 10)
	for i, pt := range t.PerformanceTargets {
		p := fmt.Sprintf("technical.performance_targets[%d]", i)
		enum(c, p+".platform", pt.Platform, platforms)
		c.number(p+".target_fps", pt.TargetFPS, 30, 240)
		c.number(p+".max_ram_mb", pt.MaxRAMMB, 256, 65536)
	}
	c.text("technical.audio.music_style", t.Audio.MusicStyle, 5, 300)
	c.count("technical.audio.sound_categories", len(t.Audio.SoundCategories), 1, 0)
}

// ValidateFeedback checks critic output bounds. A revise decision without issues is accepted.
func ValidateFeedback(f Feedback) error {
	c := &checker{}
	enum(c, "decision", f.Decision, decisions)
	for i, is := range f.BlockingIssues {
		p := fmt.Sprintf("blocking_issues[%d]", i)
		c.text(p+".section", is.Section, 1, 0)
		c.text(p+".issue", is.Issue, 10, 500)
		enum(c, p+".severity", is.Severity, severities)
		c.text(p+".suggestion", is.Suggestion, 10, 500)
	}
	c.number("feasibility_score", f.FeasibilityScore, 1, 10)
	c.number("coherence_score", f.CoherenceScore, 1, 10)
	c.number("fun_factor_score", f.FunFactorScore, 1, 10)
	c.number("completeness_score", f.CompletenessScore, 1, 10)
	c.number("originality_score", f.OriginalityScore, 1, 10)
	c.optText("review_notes", f.ReviewNotes, 2000)
	return c.err()
}
