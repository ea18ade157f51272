package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"cartoonify/internal/domain"
	"cartoonify/pkg/zip"
)

const galleryPrefix = "gallery"

// GalleryItem is the manifest written when a creation is saved.
type GalleryItem struct {
	SessionID         string         `json:"session_id"`
	OriginalImageRef  string         `json:"original_image_ref"`
	ProcessedImageRef string         `json:"processed_image_ref"`
	StyleID           domain.StyleID `json:"style_id"`
	Intensity         float64        `json:"intensity"`
	SavedAt           time.Time      `json:"saved_at"`
}

// Gallery saves finished creations as JSON manifests in a FileStore.
type Gallery struct {
	store *FileStore
	now   func() time.Time
}

// NewGallery wraps store.
func NewGallery(store *FileStore) *Gallery {
	return &Gallery{store: store, now: time.Now}
}

// Save writes the manifest for a ready session and returns its storage key.
func (g *Gallery) Save(ctx context.Context, session domain.CreationSession) (string, error) {
	if session.Status != domain.SessionStatusReady {
		return "", fmt.Errorf("%w: save requires a ready session", domain.ErrInvalidTransition)
	}
	item := GalleryItem{
		SessionID:         session.ID,
		OriginalImageRef:  session.OriginalImageRef,
		ProcessedImageRef: session.ProcessedImageRef,
		StyleID:           session.SelectedStyleID,
		Intensity:         session.Intensity,
		SavedAt:           g.now().UTC(),
	}
	raw, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return "", fmt.Errorf("storage: encode gallery item: %w", err)
	}
	return g.store.Write(ctx, galleryPrefix+"/"+session.ID+".json", raw)
}

// Items returns every saved manifest, newest first.
func (g *Gallery) Items(ctx context.Context) ([]GalleryItem, error) {
	keys, err := g.store.List(ctx, galleryPrefix)
	if err != nil {
		return nil, err
	}
	items := make([]GalleryItem, 0, len(keys))
	for _, key := range keys {
		raw, err := g.store.Read(ctx, key)
		if err != nil {
			return nil, err
		}
		var item GalleryItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("storage: decode %s: %w", key, err)
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].SavedAt.After(items[j].SavedAt) })
	return items, nil
}

// Export writes every saved manifest to w as a zip archive, newest first.
func (g *Gallery) Export(ctx context.Context, w io.Writer) (int, error) {
	items, err := g.Items(ctx)
	if err != nil {
		return 0, err
	}
	entries := make([]zip.Entry, 0, len(items))
	for _, item := range items {
		raw, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			return 0, fmt.Errorf("storage: encode gallery item: %w", err)
		}
		entries = append(entries, zip.Entry{Name: item.SessionID + ".json", Modified: item.SavedAt, Data: raw})
	}
	if err := zip.Write(w, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}
