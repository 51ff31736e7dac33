package gallery

import (
	"strings"

	"github.com/shouni/artconnect-kit/pkg/domain"
)

// Filters は取得済みの窓に対して適用する絞り込みです。ゼロ値の項目は無視されます。
type Filters struct {
	Grade      int    `json:"grade,omitempty"`
	LessonName string `json:"lessonName,omitempty"`
	Style      string `json:"style,omitempty"`
	// Search は課題名・英語プロンプト・ベトナム語プロンプトに対する大文字小文字を区別しない部分一致です。
	Search string `json:"search,omitempty"`
}

// Match は a が全条件を満たすかを返します。
func (f Filters) Match(a *domain.Artwork) bool {
	if f.Grade != 0 && a.Grade != f.Grade {
		return false
	}
	if f.LessonName != "" && a.LessonName != f.LessonName {
		return false
	}
	if f.Style != "" && a.Style != f.Style {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(a.LessonName), q) &&
			!strings.Contains(strings.ToLower(a.PromptTextEN), q) &&
			!strings.Contains(strings.ToLower(a.PromptTextVN), q) {
			return false
		}
	}
	return true
}

// Apply は条件に合う作品だけを順序を保って返します。
func (f Filters) Apply(list []domain.Artwork) []domain.Artwork {
	out := make([]domain.Artwork, 0, len(list))
	for i := range list {
		if f.Match(&list[i]) {
			out = append(out, list[i])
		}
	}
	return out
}
