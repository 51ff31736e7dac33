package domain

import (
	"fmt"
	"sort"
)

// Lesson はカリキュラム上の1つの授業です。
type Lesson struct {
	ID        string `json:"id"` // 例: "G1_T1_L1"
	No        int    `json:"no"`
	Name      string `json:"name"`
	SourceRef string `json:"sourceRef,omitempty"`
}

// Topic は授業をまとめる単元です。
type Topic struct {
	ID      string   `json:"id"` // 例: "G1_T1"
	No      int      `json:"no"`
	Name    string   `json:"name"`
	Lessons []Lesson `json:"lessons"`
}

// Grade は学年ごとの単元一覧です。
type Grade struct {
	Grade  int     `json:"grade"`
	Topics []Topic `json:"topics"`
}

// TopicID は (学年, 単元番号) から単元IDを組み立てます。
func TopicID(grade, topicNo int) string {
	return fmt.Sprintf("G%d_T%d", grade, topicNo)
}

// LessonID は (学年, 単元番号, 授業番号) から授業IDを組み立てます。
func LessonID(grade, topicNo, lessonNo int) string {
	return fmt.Sprintf("G%d_T%d_L%d", grade, topicNo, lessonNo)
}

// LessonRef は授業とその所属（学年・単元）をまとめた参照です。
type LessonRef struct {
	Grade  int    `json:"grade"`
	Topic  Topic  `json:"topic"`
	Lesson Lesson `json:"lesson"`
}

// Curriculum は読み込み後に変更されない学年→単元→授業の木構造です。
type Curriculum struct {
	grades map[int]*Grade
	index  map[string]LessonRef
}

// NewCurriculum は学年マップから Curriculum を構築し、授業IDの索引を作ります。
func NewCurriculum(grades map[int]*Grade) *Curriculum {
	c := &Curriculum{
		grades: grades,
		index:  make(map[string]LessonRef),
	}
	for g, grade := range grades {
		for _, t := range grade.Topics {
			for _, l := range t.Lessons {
				c.index[l.ID] = LessonRef{Grade: g, Topic: t, Lesson: l}
			}
		}
	}
	return c
}

// Grade は指定学年を返します。
func (c *Curriculum) Grade(n int) (*Grade, bool) {
	g, ok := c.grades[n]
	return g, ok
}

// Grades は学年の昇順で全学年を返します。
func (c *Curriculum) Grades() []*Grade {
	out := make([]*Grade, 0, len(c.grades))
	for _, g := range c.grades {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Grade < out[j].Grade })
	return out
}

// Lesson は授業IDから授業参照を引きます。
func (c *Curriculum) Lesson(id string) (LessonRef, bool) {
	ref, ok := c.index[id]
	return ref, ok
}

// LessonCount は登録されている授業の総数です。
func (c *Curriculum) LessonCount() int {
	return len(c.index)
}
