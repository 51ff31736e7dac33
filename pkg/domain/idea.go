package domain

import "fmt"

// IdeaLevel はアイデアの描き込み量（難易度）です。
type IdeaLevel string

const (
	LevelLow    IdeaLevel = "Thấp"
	LevelMedium IdeaLevel = "Vừa"
	LevelHigh   IdeaLevel = "Cao"
)

// Idea はベトナム語で書かれた作品アイデアの種です。
type Idea struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`        // アイデア名
	Composition string    `json:"composition"` // 構図・登場人物
	Details     string    `json:"details"`     // 目立つ細部
	Context     string    `json:"context"`     // 背景
	Level       IdeaLevel `json:"level"`
}

// NativeText はアイデアを翻訳器へ渡すベトナム語の1文にまとめます。
func (i Idea) NativeText() string {
	return fmt.Sprintf("%s. %s. %s. Bối cảnh: %s.", i.Name, i.Composition, i.Details, i.Context)
}

// IdeaSuggestion は言語モデルが提案する工作アイデアです（構造化出力）。
type IdeaSuggestion struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Materials   []string `json:"materials"`
}
