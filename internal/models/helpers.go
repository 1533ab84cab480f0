package models

import "github.com/google/uuid"

// NewJobID 生成任务ID
func NewJobID() string {
	return uuid.New().String()
}
