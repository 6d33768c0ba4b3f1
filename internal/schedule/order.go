// Package schedule orders exams by their weekly slot.  The order is
// computed in memory so it does not depend on a storage engine.
package schedule

import (
	"sort"
	"strconv"
	"strings"

	"github.com/iliyamo/exam-seating/internal/model"
)

// The exam week starts on Saturday.
var dayRank = map[string]int{
	"saturday":  1,
	"sunday":    2,
	"monday":    3,
	"tuesday":   4,
	"wednesday": 5,
	"thursday":  6,
	"friday":    7,
}

// DayRank returns the position of a weekday in the exam week, or 8
// for unknown or empty values so they sort last.
func DayRank(day string) int {
	if r, ok := dayRank[strings.ToLower(strings.TrimSpace(day))]; ok {
		return r
	}
	return 8
}

// PeriodMinutes returns the start of a period such as "9:00-11:00" in
// minutes after midnight.  Periods are written on a 12-hour clock
// without a suffix: hours 1 through 7 are afternoon hours.  Unparsable
// periods return -1.
func PeriodMinutes(period string) int {
	start, _, _ := strings.Cut(strings.TrimSpace(period), "-")
	hh, mm, ok := strings.Cut(strings.TrimSpace(start), ":")
	if !ok {
		return -1
	}
	h, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil {
		return -1
	}
	m, err := strconv.Atoi(strings.TrimSpace(mm))
	if err != nil {
		return -1
	}
	if h >= 1 && h <= 7 {
		h += 12
	}
	return h*60 + m
}

// Compare orders two exams by day, period start and id.
func Compare(a, b model.Exam) int {
	if d := DayRank(a.Day) - DayRank(b.Day); d != 0 {
		return sign(d)
	}
	if p := PeriodMinutes(a.Period) - PeriodMinutes(b.Period); p != 0 {
		return sign(p)
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// Sort orders exams in place.
func Sort(exams []model.Exam) {
	sort.SliceStable(exams, func(i, j int) bool { return Compare(exams[i], exams[j]) < 0 })
}

func sign(n int) int {
	if n < 0 {
		return -1
	}
	return 1
}
