package models

import "time"

// KnowledgeDocument is an uploaded plain-text reference document.
type KnowledgeDocument struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	FileType  string    `json:"file_type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentRequest is the payload for uploading a knowledge document.
type DocumentRequest struct {
	Filename string `json:"filename" validate:"required,min=1,max=255"`
	FileType string `json:"file_type" validate:"max=100"`
	Content  string `json:"content" validate:"required"`
}
