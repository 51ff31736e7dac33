package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/domain"
)

// ideaSystemPrompt は工作アイデアを JSON 配列だけで返させる指示です。
const ideaSystemPrompt = `Respond with ONLY a JSON array, no markdown and no explanations.
Each element is an object with exactly these keys:
  "title": string,
  "description": string,
  "materials": array of strings.`

// LessonPromptFallback はキーが無い、または生成に失敗したときの課題プロンプトです。
func LessonPromptFallback(lessonTitle string) string {
	return fmt.Sprintf("Children's art illustration of %s", lessonTitle)
}

// LessonPrompt は課題名そのものから英語の作画プロンプトを作ります。
func (t *Translator) LessonPrompt(ctx context.Context, lessonTitle, topicTitle string, grade int, cred config.Credential) string {
	if !cred.Present() || t.models == nil {
		return LessonPromptFallback(lessonTitle)
	}

	prompt := fmt.Sprintf(`Translate this Vietnamese primary school art lesson into a visual description prompt for an AI image generator.
Lesson: %q
Topic: %q
Grade: %d
Context: "Ket noi tri thuc" textbook series.

Requirements:
- Style: Vibrant, crayon or watercolor style, suitable for kids.
- Content: Safe, educational, simple shapes.
- Output: ONLY the English prompt text. No explanations.`, lessonTitle, topicTitle, grade)

	text, err := t.generate(ctx, cred, "", prompt)
	if err != nil {
		t.logger.WarnContext(ctx, "課題プロンプトの生成に失敗しました", "lesson", lessonTitle, "error", err)
		return LessonPromptFallback(lessonTitle)
	}
	if text == "" {
		return fmt.Sprintf("Illustration for %s", lessonTitle)
	}
	return text
}

// SuggestIdeas は課題に合う工作アイデアを3件程度提案させます。
// キーが無い場合や失敗した場合は空のスライスを返し、エラーにはしません。
func (t *Translator) SuggestIdeas(ctx context.Context, grade int, subject, topic string, cred config.Credential) []domain.IdeaSuggestion {
	if !cred.Present() || t.models == nil {
		return []domain.IdeaSuggestion{}
	}

	prompt := fmt.Sprintf(`Suggest 3 creative art project ideas for primary school students (Grade %d) for the topic %q in subject %q.
For each idea, provide a title, a short description suitable for children, and a list of materials needed.
The content should be in Vietnamese.`, grade, topic, subject)

	text, err := t.generate(ctx, cred, ideaSystemPrompt, prompt)
	if err != nil {
		t.logger.WarnContext(ctx, "アイデア提案の生成に失敗しました", "topic", topic, "error", err)
		return []domain.IdeaSuggestion{}
	}
	return parseSuggestions(ctx, t, text)
}

func parseSuggestions(ctx context.Context, t *Translator, text string) []domain.IdeaSuggestion {
	text = stripCodeFence(text)
	if text == "" {
		return []domain.IdeaSuggestion{}
	}
	var out []domain.IdeaSuggestion
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.logger.WarnContext(ctx, "アイデア提案の解析に失敗しました", "error", err)
		return []domain.IdeaSuggestion{}
	}
	// "null" は nil になる
	if out == nil {
		return []domain.IdeaSuggestion{}
	}
	for i := range out {
		if out[i].Materials == nil {
			out[i].Materials = []string{}
		}
	}
	return out
}

// stripCodeFence は ```json ... ``` で囲まれた応答から中身を取り出します。
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
