package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"cartoonify/internal/domain"
	"cartoonify/internal/storage"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// History lists completed creations, newest first.
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	items := make([]domain.HistoryEntry, 0, limit)
	for e := range a.Flow.History().List() {
		if len(items) == limit {
			break
		}
		items = append(items, e)
	}
	a.json(w, http.StatusOK, map[string]any{"items": items, "total": a.Flow.History().Len()})
}

// GalleryItems lists saved creations, newest first.
func (a *App) GalleryItems(w http.ResponseWriter, r *http.Request) {
	items := []storage.GalleryItem{}
	if a.Gallery != nil {
		var err error
		items, err = a.Gallery.Items(r.Context())
		if err != nil {
			a.fail(w, r, err)
			return
		}
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// GalleryExport downloads every saved manifest as a zip archive.
func (a *App) GalleryExport(w http.ResponseWriter, r *http.Request) {
	if a.Gallery == nil {
		a.error(w, http.StatusNotFound, "not_found", "gallery disabled")
		return
	}
	var buf bytes.Buffer
	if _, err := a.Gallery.Export(r.Context(), &buf); err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="cartoonify-gallery.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
