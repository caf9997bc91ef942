package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

const SchemaVersion = "1.0"

type Genre string

const (
	GenreAction       Genre = "action"
	GenreRPG          Genre = "rpg"
	GenrePuzzle       Genre = "puzzle"
	GenreStrategy     Genre = "strategy"
	GenreSimulation   Genre = "simulation"
	GenreRoguelike    Genre = "roguelike"
	GenrePlatformer   Genre = "platformer"
	GenreShooter      Genre = "shooter"
	GenreAdventure    Genre = "adventure"
	GenreHorror       Genre = "horror"
	GenreSurvival     Genre = "survival"
	GenreRacing       Genre = "racing"
	GenreSports       Genre = "sports"
	GenreFighting     Genre = "fighting"
	GenreStealth      Genre = "stealth"
	GenreSandbox      Genre = "sandbox"
	GenreRhythm       Genre = "rhythm"
	GenreVisualNovel  Genre = "visual_novel"
	GenreCardGame     Genre = "card_game"
	GenreTowerDefense Genre = "tower_defense"
	GenreIdle         Genre = "idle"
	GenreMetroidvania Genre = "metroidvania"
)

type Platform string

const (
	PlatformPC                 Platform = "pc"
	PlatformWeb                Platform = "web"
	PlatformMobileIOS          Platform = "mobile_ios"
	PlatformMobileAndroid      Platform = "mobile_android"
	PlatformConsolePlayStation Platform = "console_playstation"
	PlatformConsoleXbox        Platform = "console_xbox"
	PlatformConsoleNintendo    Platform = "console_nintendo"
	PlatformVR                 Platform = "vr"
	PlatformAR                 Platform = "ar"
)

type AudienceRating string

const (
	RatingEveryone   AudienceRating = "everyone"
	RatingTeen       AudienceRating = "teen"
	RatingMature     AudienceRating = "mature"
	RatingAdultsOnly AudienceRating = "adults_only"
)

type GameEngine string

const (
	EngineUnity     GameEngine = "unity"
	EngineUnreal    GameEngine = "unreal"
	EngineGodot     GameEngine = "godot"
	EngineLove2D    GameEngine = "love2d"
	EnginePhaser    GameEngine = "phaser"
	EnginePygame    GameEngine = "pygame"
	EngineConstruct GameEngine = "construct"
	EngineGameMaker GameEngine = "gamemaker"
	EngineCustom    GameEngine = "custom"
)

type ArtStyle string

const (
	ArtPixel      ArtStyle = "pixel_art"
	ArtVoxel      ArtStyle = "voxel"
	ArtLowPoly    ArtStyle = "low_poly"
	ArtRealistic  ArtStyle = "realistic"
	ArtStylized   ArtStyle = "stylized"
	ArtCartoon    ArtStyle = "cartoon"
	ArtAnime      ArtStyle = "anime"
	ArtMinimalist ArtStyle = "minimalist"
	ArtHandDrawn  ArtStyle = "hand_drawn"
	ArtAbstract   ArtStyle = "abstract"
)

type ProgressionType string

const (
	ProgressionLinear        ProgressionType = "linear"
	ProgressionBranching     ProgressionType = "branching"
	ProgressionOpenWorld     ProgressionType = "open_world"
	ProgressionRoguelikeRuns ProgressionType = "roguelike_runs"
	ProgressionLevelBased    ProgressionType = "level_based"
	ProgressionSkillTree     ProgressionType = "skill_tree"
	ProgressionMastery       ProgressionType = "mastery"
)

type NarrativeDelivery string

const (
	DeliveryCutscenes     NarrativeDelivery = "cutscenes"
	DeliveryDialogue      NarrativeDelivery = "dialogue"
	DeliveryEnvironmental NarrativeDelivery = "environmental"
	DeliveryCollectibles  NarrativeDelivery = "collectibles"
	DeliveryEmergent      NarrativeDelivery = "emergent"
	DeliveryProcedural    NarrativeDelivery = "procedural"
	DeliveryNone          NarrativeDelivery = "none"
)

type SystemType string

const (
	SystemCombat      SystemType = "combat"
	SystemMovement    SystemType = "movement"
	SystemInventory   SystemType = "inventory"
	SystemCrafting    SystemType = "crafting"
	SystemEconomy     SystemType = "economy"
	SystemDialogue    SystemType = "dialogue"
	SystemQuest       SystemType = "quest"
	SystemAI          SystemType = "ai"
	SystemPhysics     SystemType = "physics"
	SystemWeather     SystemType = "weather"
	SystemDayNight    SystemType = "day_night"
	SystemStealth     SystemType = "stealth"
	SystemBuilding    SystemType = "building"
	SystemFarming     SystemType = "farming"
	SystemCooking     SystemType = "cooking"
	SystemFishing     SystemType = "fishing"
	SystemTrading     SystemType = "trading"
	SystemSkill       SystemType = "skill"
	SystemLeveling    SystemType = "leveling"
	SystemEquipment   SystemType = "equipment"
	SystemSaveLoad    SystemType = "save_load"
	SystemMultiplayer SystemType = "multiplayer"
	SystemAchievement SystemType = "achievement"
	SystemTutorial    SystemType = "tutorial"
	SystemUI          SystemType = "ui"
	SystemAudio       SystemType = "audio"
	SystemCustom      SystemType = "custom"
)

type BiomeType string

const (
	BiomeForest     BiomeType = "forest"
	BiomeDesert     BiomeType = "desert"
	BiomeSnow       BiomeType = "snow"
	BiomeOcean      BiomeType = "ocean"
	BiomeMountain   BiomeType = "mountain"
	BiomeSwamp      BiomeType = "swamp"
	BiomeJungle     BiomeType = "jungle"
	BiomePlains     BiomeType = "plains"
	BiomeVolcanic   BiomeType = "volcanic"
	BiomeCave       BiomeType = "cave"
	BiomeUrban      BiomeType = "urban"
	BiomeRuins      BiomeType = "ruins"
	BiomeDungeon    BiomeType = "dungeon"
	BiomeSpace      BiomeType = "space"
	BiomeUnderwater BiomeType = "underwater"
)

// Severity is shared by critic blocking issues and document risks.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
)

var (
	genres = setOf(GenreAction, GenreRPG, GenrePuzzle, GenreStrategy, GenreSimulation, GenreRoguelike,
		GenrePlatformer, GenreShooter, GenreAdventure, GenreHorror, GenreSurvival, GenreRacing, GenreSports,
		GenreFighting, GenreStealth, GenreSandbox, GenreRhythm, GenreVisualNovel, GenreCardGame,
		GenreTowerDefense, GenreIdle, GenreMetroidvania)
	platforms = setOf(PlatformPC, PlatformWeb, PlatformMobileIOS, PlatformMobileAndroid,
		PlatformConsolePlayStation, PlatformConsoleXbox, PlatformConsoleNintendo, PlatformVR, PlatformAR)
	ratings = setOf(RatingEveryone, RatingTeen, RatingMature, RatingAdultsOnly)
	engines = setOf(EngineUnity, EngineUnreal, EngineGodot, EngineLove2D, EnginePhaser, EnginePygame,
		EngineConstruct, EngineGameMaker, EngineCustom)
	artStyles = setOf(ArtPixel, ArtVoxel, ArtLowPoly, ArtRealistic, ArtStylized, ArtCartoon, ArtAnime,
		ArtMinimalist, ArtHandDrawn, ArtAbstract)
	progressionTypes = setOf(ProgressionLinear, ProgressionBranching, ProgressionOpenWorld,
		ProgressionRoguelikeRuns, ProgressionLevelBased, ProgressionSkillTree, ProgressionMastery)
	deliveries = setOf(DeliveryCutscenes, DeliveryDialogue, DeliveryEnvironmental, DeliveryCollectibles,
		DeliveryEmergent, DeliveryProcedural, DeliveryNone)
	systemTypes = setOf(SystemCombat, SystemMovement, SystemInventory, SystemCrafting, SystemEconomy,
		SystemDialogue, SystemQuest, SystemAI, SystemPhysics, SystemWeather, SystemDayNight, SystemStealth,
		SystemBuilding, SystemFarming, SystemCooking, SystemFishing, SystemTrading, SystemSkill,
		SystemLeveling, SystemEquipment, SystemSaveLoad, SystemMultiplayer, SystemAchievement,
		SystemTutorial, SystemUI, SystemAudio, SystemCustom)
	biomes = setOf(BiomeForest, BiomeDesert, BiomeSnow, BiomeOcean, BiomeMountain, BiomeSwamp,
		BiomeJungle, BiomePlains, BiomeVolcanic, BiomeCave, BiomeUrban, BiomeRuins, BiomeDungeon,
		BiomeSpace, BiomeUnderwater)
	severities  = setOf(SeverityCritical, SeverityMajor)
	likelihoods = setOf("low", "medium", "high")
)

func setOf[T ~string](values ...T) map[T]struct{} {
	out := make(map[T]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

// Document is the Game Design Document produced by the actor role.
type Document struct {
	SchemaVersion    string              `json:"schema_version"`
	GeneratedAt      string              `json:"generated_at,omitempty"`
	Meta             GameMeta            `json:"meta"`
	CoreLoop         CoreLoop            `json:"core_loop"`
	Systems          []GameSystem        `json:"systems"`
	Progression      Progression         `json:"progression"`
	Narrative        Narrative           `json:"narrative"`
	Technical        TechnicalSpec       `json:"technical"`
	MapHints         *MapGenerationHints `json:"map_hints,omitempty"`
	Risks            []Risk              `json:"risks,omitempty"`
	DevelopmentTasks []DevelopmentTask   `json:"development_tasks,omitempty"`
	AdditionalNotes  *string             `json:"additional_notes,omitempty"`
}

type GameMeta struct {
	Title                 string         `json:"title"`
	Genres                []Genre        `json:"genres"`
	TargetPlatforms       []Platform     `json:"target_platforms"`
	TargetAudience        string         `json:"target_audience"`
	AudienceRating        AudienceRating `json:"audience_rating"`
	UniqueSellingPoint    string         `json:"unique_selling_point"`
	EstimatedDevTimeWeeks int            `json:"estimated_dev_time_weeks"`
	TeamSizeEstimate      int            `json:"team_size_estimate"`
	ElevatorPitch         *string        `json:"elevator_pitch,omitempty"`
}

type FeedbackMechanism struct {
	Trigger  string `json:"trigger"`
	Response string `json:"response"`
	Purpose  string `json:"purpose"`
}

type CoreLoop struct {
	PrimaryActions        []string            `json:"primary_actions"`
	ChallengeDescription  string              `json:"challenge_description"`
	RewardDescription     string              `json:"reward_description"`
	LoopDescription       string              `json:"loop_description"`
	SessionLengthMinutes  int                 `json:"session_length_minutes"`
	FeedbackMechanisms    []FeedbackMechanism `json:"feedback_mechanisms,omitempty"`
	HookElements          []string            `json:"hook_elements,omitempty"`
}

type SystemParameter struct {
	Name         string  `json:"name"`
	Type         string  `json:"type,omitempty"`
	DefaultValue string  `json:"default_value,omitempty"`
	Description  string  `json:"description"`
	Range        *string `json:"range,omitempty"`
}

type GameSystem struct {
	Name         string            `json:"name"`
	Type         SystemType        `json:"type"`
	Description  string            `json:"description"`
	Mechanics    []string          `json:"mechanics"`
	Parameters   []SystemParameter `json:"parameters,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty"`
	Priority     int               `json:"priority"`
}

type Milestone struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	UnlockCondition string   `json:"unlock_condition"`
	Rewards         []string `json:"rewards,omitempty"`
	EstimatedHours  *float64 `json:"estimated_hours,omitempty"`
}

type UnlockItem struct {
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	UnlockMethod string `json:"unlock_method"`
	Impact       string `json:"impact"`
}

type DifficultyLevel struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Modifiers   map[string]string `json:"modifiers,omitempty"`
}

type Progression struct {
	Type                       ProgressionType   `json:"type"`
	Milestones                 []Milestone       `json:"milestones"`
	Unlocks                    []UnlockItem      `json:"unlocks,omitempty"`
	DifficultyLevels           []DifficultyLevel `json:"difficulty_levels,omitempty"`
	DifficultyCurveDescription string            `json:"difficulty_curve_description"`
	MetaProgressionDescription *string           `json:"meta_progression_description,omitempty"`
	EstimatedCompletionHours   *float64          `json:"estimated_completion_hours,omitempty"`
}

type Character struct {
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Description string   `json:"description"`
	Motivation  *string  `json:"motivation,omitempty"`
	Abilities   []string `json:"abilities,omitempty"`
}

type Narrative struct {
	Setting           string              `json:"setting"`
	StoryPremise      string              `json:"story_premise"`
	Themes            []string            `json:"themes"`
	Characters        []Character         `json:"characters,omitempty"`
	NarrativeDelivery []NarrativeDelivery `json:"narrative_delivery"`
	StoryStructure    string              `json:"story_structure"`
	KeyStoryBeats     []string            `json:"key_story_beats,omitempty"`
	WorldLore         *string             `json:"world_lore,omitempty"`
}

type PerformanceTarget struct {
	Platform      Platform `json:"platform"`
	TargetFPS     int      `json:"target_fps"`
	MinResolution string   `json:"min_resolution"`
	MaxRAMMB      int      `json:"max_ram_mb"`
}

type AudioRequirements struct {
	MusicStyle      string   `json:"music_style"`
	SoundCategories []string `json:"sound_categories"`
	VoiceActing     bool     `json:"voice_acting"`
	AdaptiveMusic   bool     `json:"adaptive_music"`
}

type TechnicalSpec struct {
	RecommendedEngine     GameEngine          `json:"recommended_engine"`
	ArtStyle              ArtStyle            `json:"art_style"`
	KeyTechnologies       []string            `json:"key_technologies"`
	PerformanceTargets    []PerformanceTarget `json:"performance_targets,omitempty"`
	Audio                 AudioRequirements   `json:"audio"`
	AssetRequirements     []string            `json:"asset_requirements,omitempty"`
	NetworkingRequired    bool                `json:"networking_required"`
	AccessibilityFeatures []string            `json:"accessibility_features,omitempty"`
	LocalizationLanguages []string            `json:"localization_languages,omitempty"`
}

type ObstacleHint struct {
	Type    string `json:"type"`
	Density string `json:"density,omitempty"`
	Purpose string `json:"purpose"`
}

type SpecialFeature struct {
	Name         string   `json:"name"`
	Frequency    string   `json:"frequency,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	Description  string   `json:"description"`
}

type MapGenerationHints struct {
	Biomes          []BiomeType      `json:"biomes"`
	MapSize         string           `json:"map_size,omitempty"`
	Obstacles       []ObstacleHint   `json:"obstacles,omitempty"`
	SpecialFeatures []SpecialFeature `json:"special_features,omitempty"`
	Connectivity    string           `json:"connectivity,omitempty"`
	Verticality     string           `json:"verticality,omitempty"`
	GenerationStyle string           `json:"generation_style,omitempty"`
	EnemySpawnZones []string         `json:"enemy_spawn_zones,omitempty"`
	VisualThemes    []string         `json:"visual_themes,omitempty"`
}

// MapCommandArgs renders the hints as arguments for the level generator's /Map command.
func (h MapGenerationHints) MapCommandArgs() string {
	args := make([]string, 0, 4)
	if len(h.Biomes) > 0 {
		names := make([]string, 0, len(h.Biomes))
		for _, b := range h.Biomes {
			names = append(names, string(b))
		}
		args = append(args, "biomes: "+strings.Join(names, ", "))
	}
	args = append(args,
		"size: "+h.MapSize,
		"connectivity: "+h.Connectivity,
		"style: "+h.GenerationStyle,
	)
	return strings.Join(args, "; ")
}

type Risk struct {
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Mitigation  string   `json:"mitigation"`
	Likelihood  string   `json:"likelihood"`
}

type TaskRequirement struct {
	Description    string   `json:"description"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
}

type DevelopmentTask struct {
	ID             string            `json:"id"`
	Phase          int               `json:"phase"`
	PhaseName      string            `json:"phase_name"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	RelatedSystem  *string           `json:"related_system,omitempty"`
	Requirements   []TaskRequirement `json:"requirements"`
	Priority       int               `json:"priority"`
	EstimatedHours *float64          `json:"estimated_hours,omitempty"`
	Dependencies   []string          `json:"dependencies,omitempty"`
}

// applyDefaults fills optional fields the way the schema documents them.
func (d *Document) applyDefaults() {
	if d.SchemaVersion == "" {
		d.SchemaVersion = SchemaVersion
	}
	if d.Meta.AudienceRating == "" {
		d.Meta.AudienceRating = RatingTeen
	}
	if d.Meta.TeamSizeEstimate == 0 {
		d.Meta.TeamSizeEstimate = 1
	}
	for i := range d.Systems {
		if d.Systems[i].Priority == 0 {
			d.Systems[i].Priority = 5
		}
	}
	for i := range d.Risks {
		if d.Risks[i].Likelihood == "" {
			d.Risks[i].Likelihood = "medium"
		}
	}
	for i := range d.DevelopmentTasks {
		if d.DevelopmentTasks[i].Priority == 0 {
			d.DevelopmentTasks[i].Priority = 5
		}
	}
	if d.MapHints != nil {
		if d.MapHints.MapSize == "" {
			d.MapHints.MapSize = "medium"
		}
		if d.MapHints.Connectivity == "" {
			d.MapHints.Connectivity = "medium"
		}
		if d.MapHints.Verticality == "" {
			d.MapHints.Verticality = "low"
		}
		if d.MapHints.GenerationStyle == "" {
			d.MapHints.GenerationStyle = "procedural_rooms"
		}
	}
}

// JSON returns the canonical indented serialization used in prompts and exports.
func (d Document) JSON() string {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (d Document) Summary() string {
	var sb strings.Builder
	rule := strings.Repeat("=", 60)
	sb.WriteString(rule + "\n")
	sb.WriteString("GAME DESIGN DOCUMENT: " + d.Meta.Title + "\n")
	sb.WriteString(rule + "\n")
	sb.WriteString("Genres: " + joinStrings(d.Meta.Genres) + "\n")
	sb.WriteString("Platforms: " + joinStrings(d.Meta.TargetPlatforms) + "\n")
	sb.WriteString("USP: " + d.Meta.UniqueSellingPoint + "\n\n")
	sb.WriteString("CORE LOOP:\n")
	sb.WriteString("  Actions: " + strings.Join(d.CoreLoop.PrimaryActions, ", ") + "\n")
	sb.WriteString(fmt.Sprintf("  Session Length: %d minutes\n\n", d.CoreLoop.SessionLengthMinutes))
	sb.WriteString(fmt.Sprintf("SYSTEMS (%d):\n", len(d.Systems)))
	for i, s := range d.Systems {
		if i == 5 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(d.Systems)-5))
			break
		}
		sb.WriteString(fmt.Sprintf("  - %s (%s)\n", s.Name, s.Type))
	}
	sb.WriteString(fmt.Sprintf("\nPROGRESSION: %s\n", d.Progression.Type))
	sb.WriteString(fmt.Sprintf("  Milestones: %d\n\n", len(d.Progression.Milestones)))
	sb.WriteString("TECHNICAL:\n")
	sb.WriteString(fmt.Sprintf("  Engine: %s\n", d.Technical.RecommendedEngine))
	sb.WriteString(fmt.Sprintf("  Art Style: %s\n\n", d.Technical.ArtStyle))
	sb.WriteString(fmt.Sprintf("RISKS: %d identified\n", len(d.Risks)))
	sb.WriteString("Schema Version: " + d.SchemaVersion)
	return sb.String()
}

func joinStrings[T ~string](values []T) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, string(v))
	}
	return strings.Join(parts, ", ")
}
