package domain

import "time"

// Visibility は作品の公開範囲です。
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid は2状態のどちらかであるかを返します。
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Toggle は公開⇔非公開を反転した値を返します。2回適用すると元に戻ります。
func (v Visibility) Toggle() Visibility {
	if v == VisibilityPublic {
		return VisibilityPrivate
	}
	return VisibilityPublic
}

// SavedFromGenerator は生成パネルから保存された作品を示す値です。
const SavedFromGenerator = "generator"

// Artwork はギャラリーに永続化された作品レコードです。
// ID と CreatedAt はストアが割り当てます。
type Artwork struct {
	ID                 string     `json:"id"`
	ImagePreviewBase64 string     `json:"imagePreviewBase64"`
	PromptTextEN       string     `json:"promptTextEN"`
	PromptTextVN       string     `json:"promptTextVN"`
	Style              string     `json:"style"`
	LessonName         string     `json:"lessonName"`
	TopicName          string     `json:"topicName"`
	Grade              int        `json:"grade"`
	UserID             string     `json:"userId"`
	AuthorName         string     `json:"authorName"`
	Visibility         Visibility `json:"visibility"`
	SavedFrom          string     `json:"savedFrom"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// Draft は生成中セッションのスナップショットです。利用者ごとに1枠だけ保持されます。
type Draft struct {
	LessonID      string  `json:"lessonId"`
	PreviewBase64 *string `json:"previewBase64"`
	PromptTextEN  string  `json:"promptTextEN"`
	PromptTextVN  string  `json:"promptTextVN"`
	Style         string  `json:"style"`
	IsSaved       bool    `json:"isSaved"`
	SavedDocID    *string `json:"savedDocId"`
	Timestamp     int64   `json:"timestamp"` // Unix ミリ秒
}

// HasPreview はプレビュー画像を保持しているかを返します。
func (d Draft) HasPreview() bool {
	return d.PreviewBase64 != nil && *d.PreviewBase64 != ""
}
