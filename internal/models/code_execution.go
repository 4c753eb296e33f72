package models

import "time"

// CodeExecution is one persisted run of candidate code on the external
// runner. SubmissionID and QuestionID link the run to the coding question
// it was attempted for; ad-hoc runs leave them empty.
type CodeExecution struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID *uint     `gorm:"index" json:"submission_id,omitempty"`
	QuestionID   string    `gorm:"index" json:"question_id,omitempty"`
	Language     string    `gorm:"not null" json:"language"`
	Version      string    `json:"version"`
	Stdout       string    `json:"stdout"`
	Stderr       string    `json:"stderr"`
	Output       string    `json:"output"`
	ExitCode     int       `json:"exit_code"`
	CreatedAt    time.Time `json:"created_at"`
}
