package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam is a certification exam in the catalog.
type Exam struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Code             string    `json:"code"`
	Certification    string    `json:"certification"`
	Description      string    `json:"description"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	PassingScore     int       `json:"passing_score"`
	Version          string    `json:"version"`
	QuestionCount    int       `json:"question_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SetType distinguishes complete mock exams from short samples.
type SetType string

const (
	SetTypeFull   SetType = "full"
	SetTypeSample SetType = "sample"
)

// ExamSet is a named, curated subset of an exam's question bank.
type ExamSet struct {
	ID          uuid.UUID `json:"id"`
	ExamID      string    `json:"exam_id"`
	Name        string    `json:"name"`
	Type        SetType   `json:"type"`
	Description string    `json:"description"`
	QuestionIDs []string  `json:"question_ids"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// UpsertExamRequest is the payload for creating or updating an exam.
type UpsertExamRequest struct {
	ID               string `json:"id" binding:"required,min=2,max=64,slug"`
	Title            string `json:"title" binding:"required,min=3,max=255"`
	Code             string `json:"code" binding:"required,min=2,max=32"`
	Certification    string `json:"certification" binding:"required,oneof=AWS GCP Azure"`
	Description      string `json:"description" binding:"omitempty,max=4000"`
	TimeLimitMinutes int    `json:"time_limit_minutes" binding:"required,min=1,max=480"`
	PassingScore     int    `json:"passing_score" binding:"required,min=1,max=100"`
	Version          string `json:"version" binding:"omitempty,max=32"`
}

// CreateSetRequest is the payload for creating a question set.
type CreateSetRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=255"`
	Type        string   `json:"type" binding:"required,oneof=full sample"`
	Description string   `json:"description" binding:"omitempty,max=4000"`
	QuestionIDs []string `json:"question_ids" binding:"required,min=1,dive,min=1,max=64"`
	SortOrder   int      `json:"sort_order" binding:"min=0"`
}
