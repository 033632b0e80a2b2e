// Package models defines the Recipe Lab data model shared by the device-side
// store and the remote store: recipes arranged in lineage trees, and the
// social records (favorites, suggestions, notifications, profiles, follows)
// that reference recipes and owners.
package models

import (
	"time"
)

// Difficulty grades how hard a recipe is to cook.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Owner identifies who created or contributed to a record. DisplayName is a
// snapshot taken at creation or migration time, not a live reference.
type Owner struct {
	ID          string `json:"ownerId" validate:"required"`
	DisplayName string `json:"displayName"`
}

// Ingredient is one line of an ingredient list.
type Ingredient struct {
	Amount *float64 `json:"amount"`
	Unit   *string  `json:"unit"`
	Name   string   `json:"name" validate:"required"`
	Notes  *string  `json:"notes"`
	Group  *string  `json:"group"`
}

// Instruction is one numbered preparation step.
type Instruction struct {
	Step  int     `json:"step" validate:"gte=0"`
	Text  string  `json:"text" validate:"required"`
	Group *string `json:"group"`
}

// Content is the part of a recipe produced by the generator. It is validated
// before it may enter any store.
type Content struct {
	Title        string        `json:"title" validate:"required"`
	Description  string        `json:"description"`
	Emoji        string        `json:"emoji"`
	Ingredients  []Ingredient  `json:"ingredients" validate:"dive"`
	Instructions []Instruction `json:"instructions" validate:"dive"`
	Notes        []string      `json:"notes"`
	Tags         []string      `json:"tags"`
	PrepTime     float64       `json:"prepTime" validate:"gte=0"`
	CookTime     float64       `json:"cookTime" validate:"gte=0"`
	TotalTime    float64       `json:"totalTime" validate:"gte=0"`
	Servings     float64       `json:"servings" validate:"gte=0"`
	Difficulty   Difficulty    `json:"difficulty" validate:"oneof=easy medium hard"`
}

// ChatRole is the author of a chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of the conversation that produced a recipe.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Recipe    *Recipe   `json:"recipe,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Lineage places a recipe inside its tree. A root has an empty ParentID,
// RootID equal to its own id and Depth 0.
type Lineage struct {
	ParentID string `json:"parentId"`
	RootID   string `json:"rootId"`
	Depth    int    `json:"depth"`
}

// RootLineage returns the lineage of a new original recipe with the given id.
func RootLineage(id string) Lineage {
	return Lineage{RootID: id}
}

// ChildLineage returns the lineage of a new variation of parent.
func ChildLineage(parent Lineage, parentID string) Lineage {
	return Lineage{ParentID: parentID, RootID: parent.RootID, Depth: parent.Depth + 1}
}

// Recipe is a node in a lineage tree.
type Recipe struct {
	ID string `json:"id"`
	Lineage
	CreatedBy     Owner   `json:"createdBy"`
	Collaborators []Owner `json:"collaborators"`
	Content
	Prompt      string        `json:"prompt"`
	ChatHistory []ChatMessage `json:"chatHistory"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// IsRoot reports whether r is the original of its tree.
func (r *Recipe) IsRoot() bool {
	return r.ParentID == ""
}

// HasCollaborator reports whether ownerID is already credited on r.
func (r *Recipe) HasCollaborator(ownerID string) bool {
	for _, c := range r.Collaborators {
		if c.ID == ownerID {
			return true
		}
	}
	return false
}

// AddCollaborator credits o on r with set semantics keyed by owner id.
// It reports whether o was added.
func (r *Recipe) AddCollaborator(o Owner) bool {
	if r.HasCollaborator(o.ID) {
		return false
	}
	r.Collaborators = append(r.Collaborators, o)
	return true
}

// Shareable strips the fields that never leave the device.
func (r *Recipe) Shareable() *Recipe {
	cp := *r
	cp.ChatHistory = nil
	return &cp
}
