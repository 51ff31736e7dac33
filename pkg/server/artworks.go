package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/gallery"
	"github.com/shouni/artconnect-kit/pkg/identity"
	"github.com/shouni/artconnect-kit/pkg/studio"
)

type listQuery struct {
	scope   gallery.Scope
	ownerID string
	filters gallery.Filters
}

// parseListQuery は scope, grade, lesson, style, q を読みます。mine はサインインが必要です。
func parseListQuery(r *http.Request) (listQuery, error) {
	q := r.URL.Query()
	scope, ok := gallery.ParseScope(q.Get("scope"))
	if !ok {
		return listQuery{}, fmt.Errorf("%w: scope=%q", errBadRequest, q.Get("scope"))
	}
	out := listQuery{
		scope: scope,
		filters: gallery.Filters{
			LessonName: q.Get("lesson"),
			Style:      q.Get("style"),
			Search:     q.Get("q"),
		},
	}
	if g := q.Get("grade"); g != "" {
		n, err := strconv.Atoi(g)
		if err != nil {
			return listQuery{}, fmt.Errorf("%w: grade=%q", errBadRequest, g)
		}
		out.filters.Grade = n
	}
	if scope == gallery.ScopeMine {
		user, ok := identity.FromContext(r.Context())
		if !ok {
			return listQuery{}, gallery.ErrUnauthenticated
		}
		out.ownerID = user.ID
	}
	return out, nil
}

func (s *Server) handleListArtworks(w http.ResponseWriter, r *http.Request) {
	lq, err := parseListQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s.deps.Gallery.Snapshot(r.Context(), lq.scope, lq.ownerID, lq.filters))
}

// handleStreamArtworks は購読のスナップショットを SSE の artworks イベントとして送り続けます。
func (s *Server) handleStreamArtworks(w http.ResponseWriter, r *http.Request) {
	lq, err := parseListQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	updates := make(chan []domain.Artwork, 1)
	stop := s.deps.Gallery.Subscribe(ctx, lq.scope, lq.ownerID, lq.filters, func(list []domain.Artwork) {
		// 未送信の古いスナップショットは捨てて最新だけを残す
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- list:
		case <-ctx.Done():
		}
	})
	defer stop()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case list := <-updates:
			payload, err := json.Marshal(list)
			if err != nil {
				s.logger.WarnContext(ctx, "スナップショットをエンコードできませんでした", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: artworks\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

type saveRequest struct {
	LessonID     string `json:"lessonId"`
	ImageDataURI string `json:"imageDataUri"`
	PromptTextEN string `json:"promptTextEN"`
	PromptTextVN string `json:"promptTextVN"`
	Style        string `json:"style"`
	Visibility   string `json:"visibility"`
	AuthorName   string `json:"authorName"`
}

func (s *Server) handleSaveArtwork(w http.ResponseWriter, r *http.Request) {
	user, _ := identity.FromContext(r.Context())
	var req saveRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ref, err := s.lessonRef(req.LessonID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	vis := domain.Visibility(req.Visibility)
	if vis != "" && !vis.Valid() {
		s.writeError(w, r, fmt.Errorf("%w: visibility=%q", errBadRequest, req.Visibility))
		return
	}
	var style domain.Style
	if req.Style != "" {
		if style, err = domain.ParseStyle(req.Style); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}

	art, err := s.deps.Studio.Save(r.Context(), studio.SaveInput{
		UserID:       user.ID,
		AuthorName:   req.AuthorName,
		Lesson:       ref,
		Visibility:   vis,
		ImageDataURI: req.ImageDataURI,
		PromptTextEN: req.PromptTextEN,
		PromptTextVN: req.PromptTextVN,
		Style:        style,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, art)
}

func (s *Server) handleToggleVisibility(w http.ResponseWriter, r *http.Request) {
	user, _ := identity.FromContext(r.Context())
	id := chi.URLParam(r, "id")
	v, err := s.deps.Gallery.ToggleVisibility(r.Context(), id, gallery.OwnedBy(user.ID))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"id": id, "visibility": v})
}

func (s *Server) handleDeleteArtwork(w http.ResponseWriter, r *http.Request) {
	user, _ := identity.FromContext(r.Context())
	if err := s.deps.Gallery.Remove(r.Context(), chi.URLParam(r, "id"), gallery.OwnedBy(user.ID)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
