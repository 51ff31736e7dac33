package curriculum

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shouni/artconnect-kit/pkg/domain"
)

// 授業ごとの固定アイデア。キーは授業名の部分文字列として照合されます。
var specificIdeas = map[string][]domain.Idea{
	"Bữa cơm gia đình": {
		{ID: "meal_1", Name: "Gia đình quây quần", Composition: "4 người (Bố, mẹ, 2 con)", Details: "Mâm cơm tròn, bát đũa, nồi cơm", Context: "Phòng ăn ấm cúng", Level: domain.LevelMedium},
		{ID: "meal_2", Name: "Chuẩn bị bữa ăn", Composition: "Mẹ và bé", Details: "Mẹ bày thức ăn, bé so đũa", Context: "Góc bếp gọn gàng", Level: domain.LevelLow},
		{ID: "meal_3", Name: "Góc bàn ăn (Cận cảnh)", Composition: "Chỉ có bàn ăn và tay người", Details: "Đĩa cá, bát canh, đĩa rau xanh", Context: "Nhìn từ trên xuống", Level: domain.LevelHigh},
		{ID: "meal_4", Name: "Tranh tô màu (Line Art)", Composition: "Gia đình đang ăn", Details: "Nét viền đen rõ ràng, không tô màu", Context: "Nền trắng hoàn toàn", Level: domain.LevelLow},
		{ID: "meal_5", Name: "Bữa cơm ngày Tết", Composition: "Đại gia đình (Ông bà, bố mẹ, cháu)", Details: "Bánh chưng, hoa đào, dưa hấu", Context: "Phòng khách trang trí Tết", Level: domain.LevelHigh},
	},
}

// IdeasForLesson は授業名に合うアイデア一覧を返します。
// 固定アイデアが無い授業には、授業名を埋め込んだ汎用アイデアを返します。
func IdeasForLesson(lessonName string) []domain.Idea {
	keys := make([]string, 0, len(specificIdeas))
	for k := range specificIdeas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(lessonName, k) {
			return append([]domain.Idea(nil), specificIdeas[k]...)
		}
	}
	return genericIdeas(lessonName)
}

func genericIdeas(lessonName string) []domain.Idea {
	return []domain.Idea{
		{ID: "gen_1", Name: "Minh họa trực tiếp", Composition: "Nhân vật chính ở giữa", Details: fmt.Sprintf("Thể hiện rõ chủ đề %s", lessonName), Context: "Đơn giản, ít chi tiết phụ", Level: domain.LevelLow},
		{ID: "gen_2", Name: "Hoạt động nhóm", Composition: "Nhóm học sinh/bạn bè", Details: "Đang cùng nhau tìm hiểu/vui chơi", Context: "Sân trường hoặc lớp học", Level: domain.LevelMedium},
		{ID: "gen_3", Name: "Phong cảnh liên quan", Composition: "Góc nhìn rộng", Details: "Cây cối, nhà cửa, thiên nhiên", Context: "Không gian mở, tươi sáng", Level: domain.LevelMedium},
		{ID: "gen_4", Name: "Tranh tô màu đơn giản", Composition: "Nét vẽ viền đen (Line Art)", Details: "Các hình khối cơ bản, dễ tô", Context: "Nền trắng", Level: domain.LevelLow},
		{ID: "gen_5", Name: "Sáng tạo chi tiết", Composition: "Góc nhìn cận cảnh", Details: "Tập trung vào vật thể chính", Context: "Trang trí họa tiết bắt mắt", Level: domain.LevelHigh},
	}
}

// FindIdea はアイデアIDで検索します。
func FindIdea(lessonName, ideaID string) (domain.Idea, bool) {
	for _, idea := range IdeasForLesson(lessonName) {
		if idea.ID == ideaID {
			return idea, true
		}
	}
	return domain.Idea{}, false
}
