// Package fallback builds documents that are guaranteed to pass validation when the
// actor cannot produce one.
package fallback

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"gdd-orchestrator/internal/domain"
)

const titleSuffix = " (Fallback)"

// MinimalDocument returns a valid placeholder document derived from the concept text.
func MinimalDocument(concept string) domain.Document {
	notes := "This is a FALLBACK GDD generated because the actor could not produce a valid document. Regenerate with a more specific concept."
	return domain.Document{
		SchemaVersion: domain.SchemaVersion,
		Meta: domain.GameMeta{
			Title:                 fallbackTitle(concept),
			Genres:                []domain.Genre{domain.GenreAction},
			TargetPlatforms:       []domain.Platform{domain.PlatformPC},
			TargetAudience:        "General gaming audience - this is a fallback GDD",
			AudienceRating:        domain.RatingTeen,
			UniqueSellingPoint:    "Based on concept: " + truncate(concept, 100) + "... (Fallback - needs revision)",
			EstimatedDevTimeWeeks: 26,
			TeamSizeEstimate:      1,
		},
		CoreLoop: domain.CoreLoop{
			PrimaryActions:       []string{"Play", "Progress"},
			ChallengeDescription: "Fallback GDD - challenges need to be defined based on the concept",
			RewardDescription:    "Fallback GDD - rewards need to be defined based on the concept",
			LoopDescription:      "Fallback GDD - core loop needs to be designed based on the concept",
			SessionLengthMinutes: 30,
		},
		Systems: []domain.GameSystem{
			{
				Name:        "Core Gameplay System",
				Type:        domain.SystemCustom,
				Description: "Fallback system - needs to be defined based on the concept",
				Mechanics:   []string{"Placeholder mechanic"},
				Priority:    5,
			},
			{
				Name:        "Progression System",
				Type:        domain.SystemLeveling,
				Description: "Fallback progression - needs to be defined based on the concept",
				Mechanics:   []string{"Level up"},
				Priority:    5,
			},
			{
				Name:        "UI System",
				Type:        domain.SystemUI,
				Description: "Standard UI system for menus and HUD",
				Mechanics:   []string{"Menu navigation", "HUD display"},
				Priority:    5,
			},
		},
		Progression: domain.Progression{
			Type: domain.ProgressionLinear,
			Milestones: []domain.Milestone{
				{Name: "Tutorial Complete", Description: "Complete the tutorial", UnlockCondition: "Finish tutorial sequence"},
				{Name: "First Challenge", Description: "Complete the first challenge", UnlockCondition: "Beat first challenge"},
				{Name: "Mid-game", Description: "Reach mid-game content", UnlockCondition: "Complete 50% of content"},
				{Name: "End-game", Description: "Reach end-game content", UnlockCondition: "Complete 80% of content"},
				{Name: "Completion", Description: "Complete the game", UnlockCondition: "Finish all main content"},
			},
			DifficultyCurveDescription: "Fallback - difficulty curve needs to be designed",
		},
		Narrative: domain.Narrative{
			Setting:           "Fallback setting - needs to be defined based on the concept",
			StoryPremise:      "Based on concept: " + truncate(concept, 200) + "... (Needs full narrative design)",
			Themes:            []string{"Adventure"},
			NarrativeDelivery: []domain.NarrativeDelivery{domain.DeliveryNone},
			StoryStructure:    "Fallback - story structure needs to be designed",
		},
		Technical: domain.TechnicalSpec{
			RecommendedEngine: domain.EngineUnity,
			ArtStyle:          domain.ArtStylized,
			KeyTechnologies:   []string{"Game engine", "Version control"},
			Audio: domain.AudioRequirements{
				MusicStyle:      "Background music",
				SoundCategories: []string{"UI", "Gameplay"},
			},
		},
		AdditionalNotes: &notes,
	}
}

// TemplateDocument is used when the actor times out. It currently shares the minimal layout.
func TemplateDocument(concept string) domain.Document {
	return MinimalDocument(concept)
}

func fallbackTitle(concept string) string {
	words := strings.Fields(concept)
	if len(words) > 5 {
		words = words[:5]
	}
	for i, w := range words {
		words[i] = capitalize(w)
	}
	base := strings.Join(words, " ")
	if base == "" {
		base = "Untitled Game"
	}
	return truncate(base, 100-utf8.RuneCountInString(titleSuffix)) + titleSuffix
}

func capitalize(w string) string {
	r := []rune(strings.ToLower(w))
	if len(r) == 0 {
		return w
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
