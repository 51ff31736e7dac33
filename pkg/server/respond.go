package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/gallery"
	"github.com/shouni/artconnect-kit/pkg/generator"
	"github.com/shouni/artconnect-kit/pkg/identity"
	"github.com/shouni/artconnect-kit/pkg/imgutil"
	"github.com/shouni/artconnect-kit/pkg/studio"
)

// errBadRequest は入力の検証エラーです。
var errBadRequest = errors.New("リクエストが不正です")

// errLessonNotFound は授業IDがカリキュラムに無いことを示します。
var errLessonNotFound = errors.New("授業が見つかりません")

// errBodyTooLarge はリクエスト本文が上限を超えたことを示します。
var errBodyTooLarge = errors.New("リクエスト本文が大きすぎます")

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// statusFor はエラーの種類を HTTP ステータスに対応付けます。
func statusFor(err error) int {
	switch {
	case errors.Is(err, config.ErrNoCredential),
		errors.Is(err, gallery.ErrNotConfigured),
		errors.Is(err, identity.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, gallery.ErrNotFound),
		errors.Is(err, studio.ErrIdeaNotFound),
		errors.Is(err, errLessonNotFound):
		return http.StatusNotFound
	case errors.Is(err, gallery.ErrUnauthenticated),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, config.ErrNoOwner):
		return http.StatusUnauthorized
	case errors.Is(err, gallery.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errBadRequest),
		errors.Is(err, studio.ErrEmptyPrompt),
		errors.Is(err, studio.ErrNoPreview),
		errors.Is(err, imgutil.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, errBodyTooLarge),
		errors.Is(err, imgutil.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, studio.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, studio.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, generator.ErrAllProvidersFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.WarnContext(r.Context(), "リクエストの処理に失敗しました", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, r, status, map[string]string{"error": err.Error()})
}

// decode は本文を JSON として読みます。本文は middleware.RequestSize で
// http.MaxBytesReader に包まれているので、上限を超えると errBodyTooLarge です。
func decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: 上限 %d バイト", errBodyTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
