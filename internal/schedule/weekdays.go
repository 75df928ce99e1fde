package schedule

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/ifsp-pirituba/almoco-bot/internal/ptbr"
)

// Portuguese weekday names indexed by time.Weekday (0=Sunday).
var weekdayNames = [7]string{
	"Domingo", "Segunda-Feira", "Terça-Feira", "Quarta-Feira",
	"Quinta-Feira", "Sexta-Feira", "Sábado",
}

var weekdayShortNames = [7]string{"Dom", "Seg", "Ter", "Qua", "Qui", "Sex", "Sáb"}

// Only Monday..Friday are accepted as preferences. Keys are accent-stripped.
var weekdayWords = map[string]int{
	"seg": 1, "segunda": 1, "segunda-feira": 1,
	"ter": 2, "terca": 2, "terca-feira": 2,
	"qua": 3, "quarta": 3, "quarta-feira": 3,
	"qui": 4, "quinta": 4, "quinta-feira": 4,
	"sex": 5, "sexta": 5, "sexta-feira": 5,
}

// WeekdayName returns the full Portuguese name for t's weekday.
func WeekdayName(t time.Time) string {
	return weekdayNames[int(t.Weekday())]
}

// WeekdayShort returns the abbreviated Portuguese name for t's weekday.
func WeekdayShort(t time.Time) string {
	return weekdayShortNames[int(t.Weekday())]
}

// WeekdayNumber maps a weekday word ("terça", "qua") to its 1..5 code.
// Returns 0 when the word is not a weekday.
func WeekdayNumber(word string) int {
	return weekdayWords[ptbr.Normalize(word)]
}

// ParseWeekdayList extracts a sorted, deduplicated weekday set (1..5) from
// free text like "seg, ter e quinta". Unrecognized tokens are ignored.
func ParseWeekdayList(text string) []int {
	seen := make(map[int]struct{})
	for _, token := range strings.FieldsFunc(ptbr.Normalize(text), func(r rune) bool {
		return r == ',' || r == ';' || r == '/' || unicode.IsSpace(r)
	}) {
		if d, ok := weekdayWords[token]; ok {
			seen[d] = struct{}{}
		}
	}
	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// FormatWeekdays renders a 1..5 set as "Seg, Ter, Qua" for replies.
func FormatWeekdays(days []int) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d <= 6 {
			parts = append(parts, weekdayShortNames[d])
		}
	}
	return strings.Join(parts, ", ")
}
