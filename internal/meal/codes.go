package meal

import "strings"

type region struct {
	name string
	code string
}

// Education office codes keyed by region, in the order the service lists them.
var regions = []region{
	{"서울", "B10"},
	{"부산", "C10"},
	{"대구", "D10"},
	{"인천", "E10"},
	{"광주", "F10"},
	{"대전", "G10"},
	{"울산", "H10"},
	{"세종", "I10"},
	{"경기", "J10"},
	{"강원", "K10"},
	{"충북", "M10"},
	{"충남", "N10"},
	{"전북", "P10"},
	{"전남", "Q10"},
	{"경북", "R10"},
	{"경남", "S10"},
	{"제주", "T10"},
}

// Meal codes used by MMEAL_SC_CODE.
const (
	Breakfast = "1"
	Lunch     = "2"
	Dinner    = "3"
)

var mealNames = map[string]string{
	Breakfast: "조식",
	Lunch:     "중식",
	Dinner:    "석식",
}

var mealAliases = map[string]string{
	"1": Breakfast, "조식": Breakfast, "breakfast": Breakfast,
	"2": Lunch, "중식": Lunch, "lunch": Lunch,
	"3": Dinner, "석식": Dinner, "dinner": Dinner,
}

// Regions returns the supported region names.
func Regions() []string {
	out := make([]string, len(regions))
	for i, r := range regions {
		out[i] = r.name
	}
	return out
}

// OfficeCode returns the education office code for a region name.
func OfficeCode(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, r := range regions {
		if r.name == name {
			return r.code, true
		}
	}
	return "", false
}

// MealName returns the Korean name of a meal code.
func MealName(code string) string {
	return mealNames[code]
}

// ParseMealCode accepts a code, a Korean name or an English name.
// An empty value means every meal of the day.
func ParseMealCode(value string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", true
	}
	code, ok := mealAliases[value]
	return code, ok
}
