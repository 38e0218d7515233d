package referral

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"svidanie/internal/models"

	"github.com/google/uuid"
)

// MaxLevel — глубина реферальной цепочки.
const MaxLevel = 3

// Ставки реферальной комиссии по уровням.
const (
	Level1Rate = 0.10
	Level2Rate = 0.05
	Level3Rate = 0.01
)

var commissionRates = map[int]float64{
	1: Level1Rate,
	2: Level2Rate,
	3: Level3Rate,
}

// Commission — комиссия реферера с суммы amount. Для неизвестного
// уровня возвращает 0.
func Commission(amount float64, level int) float64 {
	return amount * commissionRates[level]
}

var codeRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// GenerateCode строит реферальный код из имени, id пользователя и
// случайного суффикса.
func GenerateCode(userID int64, userName string) string {
	cleanName := strings.ToLower(strings.Join(strings.Fields(userName), ""))
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return cleanName + strconv.FormatInt(userID, 10) + suffix
}

// BuildLink — реферальная ссылка на мини-апп.
func BuildLink(baseURL, code string) string {
	return baseURL + "?ref=" + url.QueryEscape(code)
}

// ParseCode достает реферальный код из ссылки; пустая строка,
// если кода нет или ссылка не разбирается.
func ParseCode(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("ref")
}

func ValidateCode(code string) bool {
	return len(code) >= 4 && codeRe.MatchString(code)
}

// Tree — рефералы, сгруппированные по уровню.
type Tree struct {
	Level1 []models.ReferralUser `json:"level1"`
	Level2 []models.ReferralUser `json:"level2"`
	Level3 []models.ReferralUser `json:"level3"`
}

func BuildTree(users []models.ReferralUser) Tree {
	var tree Tree
	for _, u := range users {
		switch u.Level {
		case 1:
			tree.Level1 = append(tree.Level1, u)
		case 2:
			tree.Level2 = append(tree.Level2, u)
		case 3:
			tree.Level3 = append(tree.Level3, u)
		}
	}
	return tree
}

var levelLabels = map[int]string{
	1: "Прямые рефералы (10%)",
	2: "Рефералы 2 уровня (5%)",
	3: "Рефералы 3 уровня (1%)",
}

func LevelLabel(level int) string {
	return levelLabels[level]
}
