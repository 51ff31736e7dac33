// Package curriculum は教科書の区切りテキスト表を学年→単元→授業の木構造に変換します。
package curriculum

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/shouni/artconnect-kit/pkg/domain"
)

// 列の並び: subject, series, grade, topic_no, topic_title, lesson_no, lesson_title, source_ref
const (
	colGrade = 2 + iota
	colTopicNo
	colTopicTitle
	colLessonNo
	colLessonTitle
	colSourceRef
)

const minColumns = colLessonTitle + 1

//go:embed curriculum.csv
var defaultCSV string

var (
	defaultOnce sync.Once
	defaultCur  *domain.Curriculum
	defaultErr  error
)

// Default は埋め込みのカリキュラム表を一度だけ解析して返します。
func Default() (*domain.Curriculum, error) {
	defaultOnce.Do(func() {
		defaultCur, defaultErr = Parse(strings.NewReader(defaultCSV))
	})
	return defaultCur, defaultErr
}

// Parse は見出し行付きのカンマ区切り表を解析します。
// 引用符で囲まれたフィールド内の区切り文字は区切りとして扱いません。
// 列数が足りない行や学年が数値でない行は読み飛ばします。
func Parse(r io.Reader) (*domain.Curriculum, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewCurriculum(map[int]*domain.Grade{}), nil
		}
		return nil, fmt.Errorf("見出し行の読み込みに失敗しました: %w", err)
	}

	grades := make(map[int]*domain.Grade)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("カリキュラム表の解析に失敗しました: %w", err)
		}
		addRow(grades, row)
	}
	return domain.NewCurriculum(grades), nil
}

func addRow(grades map[int]*domain.Grade, row []string) {
	if len(row) < minColumns {
		return
	}
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	grade, ok := digitsOnly(row[colGrade])
	if !ok {
		return
	}
	topicNo, err := strconv.Atoi(row[colTopicNo])
	if err != nil {
		return
	}
	lessonNo, err := strconv.Atoi(row[colLessonNo])
	if err != nil {
		return
	}

	g, ok := grades[grade]
	if !ok {
		g = &domain.Grade{Grade: grade}
		grades[grade] = g
	}

	ti := -1
	for i := range g.Topics {
		if g.Topics[i].No == topicNo {
			ti = i
			break
		}
	}
	if ti < 0 {
		g.Topics = append(g.Topics, domain.Topic{
			ID:   domain.TopicID(grade, topicNo),
			No:   topicNo,
			Name: row[colTopicTitle],
		})
		ti = len(g.Topics) - 1
	}
	topic := &g.Topics[ti]

	name := row[colLessonTitle]
	for _, l := range topic.Lessons {
		if l.Name == name {
			return
		}
	}

	var sourceRef string
	if len(row) > colSourceRef {
		sourceRef = row[colSourceRef]
	}
	topic.Lessons = append(topic.Lessons, domain.Lesson{
		ID:        domain.LessonID(grade, topicNo, lessonNo),
		No:        lessonNo,
		Name:      name,
		SourceRef: sourceRef,
	})
}

// digitsOnly は "Lớp 3" のようなラベルから数字だけを取り出します。
func digitsOnly(label string) (int, bool) {
	var b strings.Builder
	for _, r := range label {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}
