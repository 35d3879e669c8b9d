package model

import "time"

// OnboardingExport is the top-level structure for onboarding answer export.
type OnboardingExport struct {
	ExportedAt time.Time          `json:"exported_at" yaml:"exported_at"`
	Count      int                `json:"count" yaml:"count"`
	Records    []OnboardingRecord `json:"records" yaml:"records"`
}

// OnboardingRecord holds one user's persisted onboarding data for export.
type OnboardingRecord struct {
	UserID      string         `json:"user_id" yaml:"user_id"`
	Complete    bool           `json:"complete" yaml:"complete"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Answers     []AnswerRecord `json:"answers" yaml:"answers"`
}

// AnswerRecord is a single answer in catalog order.
type AnswerRecord struct {
	QuestionID string `json:"question_id,omitempty" yaml:"question_id,omitempty"`
	Section    string `json:"section,omitempty" yaml:"section,omitempty"`
	Field      string `json:"field" yaml:"field"`
	Value      string `json:"value" yaml:"value"`
}
