package domain

import (
	"encoding/json"
	"time"
)

const DocumentJSONSchema = `{
  "schema_version": "1.0",
  "meta": {
    "title": "string (1-100)",
    "genres": ["one to five of: action, rpg, puzzle, strategy, simulation, roguelike, platformer, shooter, adventure, horror, survival, racing, sports, fighting, stealth, sandbox, rhythm, visual_novel, card_game, tower_defense, idle, metroidvania"],
    "target_platforms": ["pc | web | mobile_ios | mobile_android | console_playstation | console_xbox | console_nintendo | vr | ar"],
    "target_audience": "string (10-500)",
    "audience_rating": "everyone | teen | mature | adults_only",
    "unique_selling_point": "string (20-500)",
    "estimated_dev_time_weeks": "integer 1-520",
    "team_size_estimate": "integer 1-500",
    "elevator_pitch": "optional string (<=300)"
  },
  "core_loop": {
    "primary_actions": ["2-10 verbs"],
    "challenge_description": "string (20-1000)",
    "reward_description": "string (20-1000)",
    "loop_description": "string (20-1000)",
    "session_length_minutes": "integer 1-480",
    "feedback_mechanisms": [{"trigger": "string", "response": "string", "purpose": "string"}],
    "hook_elements": ["string"]
  },
  "systems": [{
    "name": "string", "type": "combat | movement | inventory | crafting | economy | dialogue | quest | ai | physics | weather | day_night | stealth | building | farming | cooking | fishing | trading | skill | leveling | equipment | save_load | multiplayer | achievement | tutorial | ui | audio | custom",
    "description": "string (20-1000)", "mechanics": ["1-20 strings"],
    "parameters": [{"name": "string", "type": "string", "default_value": "string", "description": "string"}],
    "dependencies": ["system names"], "priority": "integer 1-10"
  }],
  "progression": {
    "type": "linear | branching | open_world | roguelike_runs | level_based | skill_tree | mastery",
    "milestones": [{"name": "string", "description": "string (10-500)", "unlock_condition": "string (10-300)", "rewards": ["string"]}],
    "difficulty_curve_description": "string (20-1000)"
  },
  "narrative": {
    "setting": "string (10-1000)", "story_premise": "string (20-2000)", "themes": ["1-10 strings"],
    "characters": [{"name": "string", "role": "string", "description": "string (20-1000)"}],
    "narrative_delivery": ["cutscenes | dialogue | environmental | collectibles | emergent | procedural | none"],
    "story_structure": "string (10-1000)"
  },
  "technical": {
    "recommended_engine": "unity | unreal | godot | love2d | phaser | pygame | construct | gamemaker | custom",
    "art_style": "pixel_art | voxel | low_poly | realistic | stylized | cartoon | anime | minimalist | hand_drawn | abstract",
    "key_technologies": ["1-20 strings"],
    "audio": {"music_style": "string", "sound_categories": ["string"], "voice_acting": false, "adaptive_music": false},
    "networking_required": false
  },
  "map_hints": {"biomes": ["forest | desert | snow | ocean | mountain | swamp | jungle | plains | volcanic | cave | urban | ruins | dungeon | space | underwater"], "map_size": "small | medium | large", "connectivity": "low | medium | high", "generation_style": "string"},
  "risks": [{"category": "string", "description": "string (20-500)", "severity": "critical | major", "mitigation": "string (10-500)", "likelihood": "low | medium | high"}]
}`

const FeedbackJSONSchema = `{
  "decision": "approve | revise",
  "blocking_issues": [{"section": "meta | core_loop | systems | progression | narrative | technical", "issue": "string (10-500)", "severity": "critical | major", "suggestion": "string (10-500)"}],
  "feasibility_score": "integer 1-10",
  "coherence_score": "integer 1-10",
  "fun_factor_score": "integer 1-10",
  "completeness_score": "integer 1-10",
  "originality_score": "integer 1-10",
  "review_notes": "string (<=2000)"
}`

type JobRecord struct {
	ID                string            `json:"id"`
	ObjectKey         string            `json:"object_key"`
	Concept           string            `json:"concept"`
	Status            JobStatus         `json:"status"`
	TerminationReason TerminationReason `json:"termination_reason,omitempty"`
	Success           bool              `json:"success"`
	OverallScore      *float64          `json:"overall_score,omitempty"`
	TotalIterations   int               `json:"total_iterations"`
	FinalJSON         json.RawMessage   `json:"final_gdd,omitempty"`
	ResultJSON        json.RawMessage   `json:"result,omitempty"`
	FailureReason     *string           `json:"failure_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IterationRow is the persisted projection of an IterationRecord.
type IterationRow struct {
	JobID        string          `json:"job_id"`
	Iteration    int             `json:"iteration"`
	State        LoopState       `json:"state"`
	Decision     *Decision       `json:"decision,omitempty"`
	OverallScore *float64        `json:"overall_score,omitempty"`
	AutoApproved bool            `json:"auto_approved"`
	Issues       []string        `json:"issues"`
	Record       json.RawMessage `json:"record"`
}

func NewIterationRow(jobID string, rec IterationRecord) (IterationRow, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return IterationRow{}, err
	}
	row := IterationRow{
		JobID:        jobID,
		Iteration:    rec.Iteration,
		State:        rec.State,
		AutoApproved: rec.AutoApproved,
		Issues:       make([]string, 0),
		Record:       payload,
	}
	if rec.Feedback != nil {
		d := rec.Feedback.EffectiveDecision()
		score := rec.Feedback.OverallScore()
		row.Decision = &d
		row.OverallScore = &score
		for _, i := range rec.Feedback.BlockingIssues {
			row.Issues = append(row.Issues, string(i.Severity)+":"+i.Section)
		}
	}
	return row, nil
}

type ReviewQueueItem struct {
	JobID        string          `json:"job_id"`
	Reasons      []string        `json:"reasons"`
	FinalJSON    json.RawMessage `json:"final_gdd"`
	Status       string          `json:"status"`
	OverallScore *float64        `json:"overall_score,omitempty"`
}
