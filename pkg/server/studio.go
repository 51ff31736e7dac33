package server

import (
	"net/http"

	"github.com/shouni/artconnect-kit/pkg/domain"
)

type translateRequest struct {
	LessonID   string `json:"lessonId"`
	NativeText string `json:"nativeText"`
	IdeaID     string `json:"ideaId"`
	Style      string `json:"style"`
}

type lessonStyle struct {
	ref   domain.LessonRef
	style domain.Style
}

func (s *Server) resolveLessonStyle(lessonID, style string) (lessonStyle, error) {
	ref, err := s.lessonRef(lessonID)
	if err != nil {
		return lessonStyle{}, err
	}
	st, err := domain.ParseStyle(style)
	if err != nil {
		return lessonStyle{}, errBadRequest
	}
	return lessonStyle{ref: ref, style: st}, nil
}

// handleTranslate は ideaId があればそのアイデア文を、無ければ nativeText を翻訳します。
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ls, err := s.resolveLessonStyle(req.LessonID, req.Style)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var d domain.Draft
	if req.IdeaID != "" {
		d, err = s.deps.Studio.SelectIdea(r.Context(), ownerOf(r), ls.ref, req.IdeaID, ls.style)
	} else {
		d, err = s.deps.Studio.Translate(r.Context(), ownerOf(r), ls.ref, req.NativeText, ls.style)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"promptTextEN": d.PromptTextEN,
		"promptTextVN": d.PromptTextVN,
		"draft":        d,
	})
}

type generateRequest struct {
	LessonID string `json:"lessonId"`
	Prompt   string `json:"prompt"`
	Style    string `json:"style"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ls, err := s.resolveLessonStyle(req.LessonID, req.Style)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.Studio.Generate(r.Context(), ownerOf(r), ls.ref, req.Prompt, ls.style)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"dataUri":  res.DataURI,
		"mimeType": res.Image.MimeType,
		"provider": res.Image.Provider,
		"usedSeed": res.Image.UsedSeed,
		"draft":    res.Draft,
	})
}

// handleGetDraft はサインイン中の利用者の下書きを返します。lessonId 指定時はその授業の下書きだけです。
func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	var (
		d   *domain.Draft
		ok  bool
		err error
	)
	if lessonID := r.URL.Query().Get("lessonId"); lessonID != "" {
		d, ok, err = s.deps.Drafts.Load(r.Context(), ownerOf(r), lessonID)
	} else {
		d, ok, err = s.deps.Drafts.Current(r.Context(), ownerOf(r))
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "下書きはありません"})
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

func (s *Server) handlePutDraft(w http.ResponseWriter, r *http.Request) {
	var d domain.Draft
	if err := decode(r, &d); err != nil {
		s.writeError(w, r, err)
		return
	}
	if d.LessonID == "" {
		s.writeError(w, r, errBadRequest)
		return
	}
	saved, err := s.deps.Drafts.Save(r.Context(), ownerOf(r), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, saved)
}
