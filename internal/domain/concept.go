package domain

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const DefaultMaxConceptBytes = 8 * 1024

var ErrEmptyConcept = errors.New("concept is empty")

// ValidateConcept rejects input that cannot be a human-written game concept.
func ValidateConcept(concept string, maxBytes int) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxConceptBytes
	}
	if strings.TrimSpace(concept) == "" {
		return ErrEmptyConcept
	}
	if len(concept) > maxBytes {
		return fmt.Errorf("concept exceeds %d bytes", maxBytes)
	}
	if !IsTextPayload([]byte(concept)) {
		return errors.New("concept must be valid UTF-8 text")
	}
	return nil
}

func IsTextPayload(content []byte) bool {
	if len(content) == 0 || !utf8.Valid(content) {
		return false
	}
	return !bytes.ContainsRune(content, 0)
}

type ConceptInsight struct {
	Genre     string   `json:"genre,omitempty"`
	Platform  string   `json:"platform,omitempty"`
	ArtStyle  string   `json:"art_style,omitempty"`
	Missing   []string `json:"missing"`
	Score     float64  `json:"score"`
	Questions []string `json:"questions,omitempty"`
}

// Sufficient reports whether the concept carries enough detail to generate a document.
func (c ConceptInsight) Sufficient() bool {
	return c.Score >= 0.4
}

type keywordGroup struct {
	name    string
	pattern *regexp.Regexp
}

func keywords(name string, words ...string) keywordGroup {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return keywordGroup{name: name, pattern: regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))}
}

var (
	genreKeywords = []keywordGroup{
		keywords("action", "action", "combat", "battle", "brawler"),
		keywords("rpg", "rpg", "role-playing", "level up", "skill tree"),
		keywords("puzzle", "puzzle", "match-3", "brain"),
		keywords("simulation", "simulation", "sim", "management", "tycoon"),
		keywords("roguelike", "roguelike", "roguelite", "permadeath", "dungeon"),
		keywords("platformer", "platformer", "jump"),
		keywords("shooter", "shooter", "shooting", "bullet hell", "gun"),
		keywords("adventure", "adventure", "explore", "exploration"),
		keywords("horror", "horror", "scary", "zombie", "monster"),
		keywords("survival", "survival", "survive"),
		keywords("racing", "racing", "race", "kart"),
		keywords("sports", "sports", "football", "soccer", "basketball"),
		keywords("sandbox", "sandbox", "open-ended", "creative"),
		keywords("rhythm", "rhythm", "music", "beat"),
		keywords("card_game", "card", "deckbuilder", "deck-building", "tcg"),
		keywords("tower_defense", "tower defense", "wave"),
		keywords("idle", "idle", "clicker", "incremental"),
	}
	platformKeywords = []keywordGroup{
		keywords("pc", "pc", "steam", "desktop", "computer"),
		keywords("web", "web", "browser", "html5"),
		keywords("mobile", "mobile", "smartphone", "ios", "android", "phone"),
		keywords("console", "console", "playstation", "xbox", "nintendo", "switch"),
		keywords("vr", "vr", "virtual reality", "oculus", "quest"),
	}
	artKeywords = []keywordGroup{
		keywords("pixel_art", "pixel", "8-bit", "16-bit", "retro"),
		keywords("low_poly", "low poly", "low-poly", "3d"),
		keywords("cartoon", "cartoon", "anime", "comic"),
		keywords("realistic", "realistic", "photoreal"),
		keywords("minimalist", "minimal", "minimalist", "simple shapes"),
		keywords("hand_drawn", "hand drawn", "hand-drawn", "watercolor", "illustrated"),
	}
)

func detect(text string, groups []keywordGroup) string {
	for _, g := range groups {
		if g.pattern.MatchString(text) {
			return g.name
		}
	}
	return ""
}

// AnalyzeConcept detects which design facets a concept already names and suggests follow-up questions.
func AnalyzeConcept(concept string) ConceptInsight {
	in := ConceptInsight{Missing: make([]string, 0)}
	in.Genre = detect(concept, genreKeywords)
	in.Platform = detect(concept, platformKeywords)
	in.ArtStyle = detect(concept, artKeywords)

	if in.Genre != "" {
		in.Score += 0.4
	} else {
		in.Missing = append(in.Missing, "genre")
		in.Questions = append(in.Questions, "What genre should the game be (for example roguelike, puzzle, rpg)?")
	}
	if len(strings.Fields(concept)) >= 3 {
		in.Score += 0.3
	} else {
		in.Missing = append(in.Missing, "core_concept")
		in.Questions = append(in.Questions, "What does the player do moment to moment?")
	}
	if in.Platform != "" {
		in.Score += 0.15
	} else {
		in.Missing = append(in.Missing, "platform")
		in.Questions = append(in.Questions, "Which platforms should the game target?")
	}
	if in.ArtStyle != "" {
		in.Score += 0.15
	} else {
		in.Missing = append(in.Missing, "art_style")
	}
	return in
}
