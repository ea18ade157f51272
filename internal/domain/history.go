package domain

import "time"

// HistoryEntry records a completed creation. Entries are never mutated.
type HistoryEntry struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"session_id"`
	OriginalImageRef  string    `json:"original_image_ref"`
	ProcessedImageRef string    `json:"processed_image_ref"`
	StyleID           StyleID   `json:"style_id"`
	Intensity         float64   `json:"intensity"`
	CreatedAt         time.Time `json:"created_at"`
}
