// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model holds the domain types shared by the translation pipeline,
// the store, and the HTTP layer.
package model

import (
	"fmt"
	"strings"
)

// EntityType identifies a kind of translatable content.
type EntityType string

// Supported entity types.
const (
	EntityCourse   EntityType = "course"
	EntityClass    EntityType = "class"
	EntityTeacher  EntityType = "teacher"
	EntityChakra   EntityType = "chakra"
	EntityArticle  EntityType = "article"
	EntityPlaylist EntityType = "playlist"
)

// EntityTypes lists every supported entity type in display order.
var EntityTypes = []EntityType{
	EntityCourse,
	EntityClass,
	EntityTeacher,
	EntityChakra,
	EntityArticle,
	EntityPlaylist,
}

// ParseEntityType validates a raw entity type tag.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range EntityTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Context returns the content-type guidance included in translation prompts.
func (t EntityType) Context() string {
	switch t {
	case EntityCourse:
		return "Course descriptions must preserve instructional clarity: keep the learning outcomes, " +
			"session structure and level of difficulty explicit."
	case EntityClass:
		return "Class content describes a single practice session; keep pose names, durations, " +
			"intensity and safety cues accurate and easy to follow."
	case EntityTeacher:
		return "Teacher profiles are personal biographies; keep a warm first-person or third-person voice " +
			"as in the source, and do not translate personal names or lineage names."
	case EntityChakra:
		return "Chakra content must preserve spiritual and energetic terminology; keep Sanskrit names " +
			"(Muladhara, Anahata, ...) untranslated and keep the contemplative tone."
	case EntityArticle:
		return "Articles are long-form editorial texts; keep headings, Markdown formatting and the author's " +
			"tone intact."
	case EntityPlaylist:
		return "Playlist titles and descriptions are short and catchy; favour natural, idiomatic phrasing."
	default:
		return "Keep the meaning, tone and formatting of the source text."
	}
}

// Label returns a human readable name for prompts and logs.
func (t EntityType) Label() string {
	switch t {
	case EntityCourse:
		return "course"
	case EntityClass:
		return "yoga class"
	case EntityTeacher:
		return "teacher profile"
	case EntityChakra:
		return "chakra guide"
	case EntityArticle:
		return "article"
	case EntityPlaylist:
		return "playlist"
	default:
		return "content item"
	}
}

// EntityKey is the natural identity of a translatable entity.
type EntityKey struct {
	Type EntityType `json:"entity_type"`
	ID   string     `json:"entity_id"`
}

// String returns the "type:id" form used in logs and cache keys.
func (k EntityKey) String() string {
	return string(k.Type) + ":" + k.ID
}

// Tier controls model choice and batch size.
type Tier string

// Translation service tiers.
const (
	TierImmediate Tier = "immediate"
	TierOnDemand  Tier = "on_demand"
	TierBatch     Tier = "batch"
)

// ParseTier validates a tier name. An empty string yields TierOnDemand.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return TierOnDemand, nil
	case TierImmediate:
		return TierImmediate, nil
	case TierOnDemand:
		return TierOnDemand, nil
	case TierBatch:
		return TierBatch, nil
	default:
		return "", fmt.Errorf("unknown translation tier %q", s)
	}
}
