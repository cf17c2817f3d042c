package models

import "time"

type Upload struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Key       string    `json:"key"`
	FileName  string    `json:"file_name"`
	FileType  string    `json:"file_type"`
	FileSize  int64     `json:"file_size"`
	PublicURL string    `json:"public_url"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateUploadInput struct {
	Key       string `json:"key" binding:"required"`
	FileName  string `json:"file_name" binding:"required"`
	FileType  string `json:"file_type"`
	FileSize  int64  `json:"file_size" binding:"gte=0"`
	PublicURL string `json:"public_url" binding:"required"`
}
