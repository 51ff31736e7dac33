package server

import (
	"net/http"
	"strings"

	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/identity"
)

func credentialStatus(cred config.Credential) map[string]any {
	return map[string]any{
		"present": cred.Present(),
		"source":  cred.Source,
	}
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	user, token, err := s.deps.Issuer.SignInAnonymously(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "匿名サインインしました", "uid", user.ID)
	writeJSON(w, r, http.StatusCreated, map[string]any{
		"user":  user,
		"token": token,
	})
}

// ownerOf はサインイン中の利用者IDを返します。匿名のリクエストなら空です。
func ownerOf(r *http.Request) string {
	if user, ok := identity.FromContext(r.Context()); ok {
		return user.ID
	}
	return ""
}

// handleGetAPIKey はキーそのものは返さず、有無と出どころだけを返します。
func (s *Server) handleGetAPIKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, credentialStatus(s.deps.Resolver.Resolve(r.Context(), ownerOf(r))))
}

func (s *Server) handlePutAPIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"apiKey"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		s.writeError(w, r, errBadRequest)
		return
	}
	owner := ownerOf(r)
	if err := s.deps.Resolver.SetOverride(r.Context(), owner, req.APIKey); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, credentialStatus(s.deps.Resolver.Resolve(r.Context(), owner)))
}

func (s *Server) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	owner := ownerOf(r)
	if err := s.deps.Resolver.ClearOverride(r.Context(), owner); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, credentialStatus(s.deps.Resolver.Resolve(r.Context(), owner)))
}
