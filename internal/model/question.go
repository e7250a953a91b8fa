package model

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// TypeMultipleChoice is the only question type the importer produces.
const TypeMultipleChoice = "multiple_choice"

// ImportIDPrefix marks questions minted by an import run. Maintenance
// commands rely on it to tell imported entries from hand-authored ones.
const ImportIDPrefix = "imp-"

// NewImportID mints a question ID with the import prefix.
func NewImportID() string {
	u := uuid.New()
	return ImportIDPrefix + hex.EncodeToString(u[:])[:8]
}

// IsImportID reports whether id was minted by an import run.
func IsImportID(id string) bool {
	return strings.HasPrefix(id, ImportIDPrefix)
}

// RawQuestion is one usable row from a source export.
type RawQuestion struct {
	SourceID string   `json:"source_id"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Hint     string   `json:"hint,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// Option is a single answer choice with its per-option feedback.
type Option struct {
	Text     string `yaml:"text" json:"text"`
	Correct  bool   `yaml:"correct" json:"correct"`
	Feedback string `yaml:"feedback" json:"feedback"`
}

// Question is a question bank entry. Field order matches the hand-authored
// bank files so appended entries read like the rest of the document.
type Question struct {
	ID          string   `yaml:"id" json:"id"`
	Type        string   `yaml:"type" json:"type"`
	Tags        []string `yaml:"tags" json:"tags"`
	Question    string   `yaml:"question" json:"question"`
	Image       *string  `yaml:"image" json:"image"`
	Options     []Option `yaml:"options" json:"options"`
	Explanation string   `yaml:"explanation" json:"explanation"`
}
