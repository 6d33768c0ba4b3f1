package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/exam-seating/internal/model"
)

func TestDayRank(t *testing.T) {
	assert.Equal(t, 1, DayRank("Saturday"))
	assert.Equal(t, 7, DayRank(" friday "))
	assert.Equal(t, 8, DayRank(""))
}

func TestPeriodMinutes(t *testing.T) {
	assert.Equal(t, 9*60, PeriodMinutes("9:00-11:00"))
	assert.Equal(t, 13*60+30, PeriodMinutes("1:30-3:30"))
	assert.Equal(t, 12*60, PeriodMinutes("12:00-2:00"))
	assert.Equal(t, -1, PeriodMinutes("morning"))
}

func TestSort(t *testing.T) {
	exams := []model.Exam{
		{ID: 4, Day: "Sunday", Period: "9:00-11:00"},
		{ID: 3, Day: "Saturday", Period: "1:00-3:00"},
		{ID: 2, Day: "Saturday", Period: "11:00-1:00"},
		{ID: 1, Day: "Saturday", Period: "11:00-1:00"},
	}
	Sort(exams)
	var ids []uint64
	for _, e := range exams {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4}, ids)
}
