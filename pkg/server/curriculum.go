package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shouni/artconnect-kit/pkg/curriculum"
	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/imgutil"
)

func (s *Server) lessonRef(id string) (domain.LessonRef, error) {
	if s.deps.Curriculum == nil {
		return domain.LessonRef{}, errLessonNotFound
	}
	ref, ok := s.deps.Curriculum.Lesson(id)
	if !ok {
		return domain.LessonRef{}, errLessonNotFound
	}
	return ref, nil
}

func (s *Server) handleCurriculum(w http.ResponseWriter, r *http.Request) {
	grades := []*domain.Grade{}
	if s.deps.Curriculum != nil {
		grades = s.deps.Curriculum.Grades()
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"grades": grades,
		"styles": domain.Styles(),
	})
}

// handleLesson は授業と、サインイン中ならその利用者の下書き（あれば）を返します。
// 授業を選んだときに1回だけ呼ばれる想定です。
func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	ref, err := s.lessonRef(chi.URLParam(r, "lessonID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var d *domain.Draft
	if owner := ownerOf(r); owner != "" && s.deps.Studio != nil {
		d, _ = s.deps.Studio.Resume(r.Context(), owner, ref.Lesson.ID)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"lesson": ref,
		"draft":  d,
	})
}

func (s *Server) handleLessonIdeas(w http.ResponseWriter, r *http.Request) {
	ref, err := s.lessonRef(chi.URLParam(r, "lessonID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, curriculum.IdeasForLesson(ref.Lesson.Name))
}

func (s *Server) handleLessonPrompt(w http.ResponseWriter, r *http.Request) {
	ref, err := s.lessonRef(chi.URLParam(r, "lessonID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cred := s.deps.Resolver.Resolve(r.Context(), ownerOf(r))
	prompt := s.deps.Ideas.LessonPrompt(r.Context(), ref.Lesson.Name, ref.Topic.Name, ref.Grade, cred)
	writeJSON(w, r, http.StatusOK, map[string]string{"prompt": prompt})
}

type suggestRequest struct {
	Grade       int    `json:"grade"`
	Subject     string `json:"subject"`
	Topic       string `json:"topic"`
	WithPreview bool   `json:"withPreview"`
}

type suggestion struct {
	domain.IdeaSuggestion
	PreviewDataURI string `json:"previewDataUri,omitempty"`
}

func (s *Server) handleSuggestIdeas(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		s.writeError(w, r, errBadRequest)
		return
	}
	if req.Subject == "" {
		req.Subject = "Mĩ thuật"
	}

	cred := s.deps.Resolver.Resolve(r.Context(), ownerOf(r))
	ideas := s.deps.Ideas.SuggestIdeas(r.Context(), req.Grade, req.Subject, req.Topic, cred)
	out := make([]suggestion, 0, len(ideas))
	for _, idea := range ideas {
		item := suggestion{IdeaSuggestion: idea}
		if req.WithPreview && s.deps.Previewer != nil {
			if img := s.deps.Previewer.IdeaPreview(r.Context(), idea.Title, idea.Description, cred); img != nil {
				item.PreviewDataURI = imgutil.EncodeDataURI(img.MimeType, img.Data)
			}
		}
		out = append(out, item)
	}
	writeJSON(w, r, http.StatusOK, out)
}
