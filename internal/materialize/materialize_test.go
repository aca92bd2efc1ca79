package materialize

import (
	"errors"
	"testing"
	"time"

	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
	pkgerrors "github.com/Mortal/shiftplanner/pkg/errors"
)

func mondayTemplate() model.WorkplaceSettings {
	return model.WorkplaceSettings{
		WeekdayDefaults: map[string]model.DaySettings{
			"monday": {
				RegistrationStarts:   "-59dT18:00",
				RegistrationDeadline: "-3dT18:00",
				Shifts:               []string{"DV", "AV", "NV"},
			},
		},
	}
}

func TestDayShifts_Monday(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	date := dateutil.NewDate(2024, time.January, 8)

	shifts, err := DayShifts(1, date, mondayTemplate(), loc)
	if err != nil {
		t.Fatalf("DayShifts 失败: %v", err)
	}
	if len(shifts) != 3 {
		t.Fatalf("期望 3 个班次，实际 %d", len(shifts))
	}

	wantDeadline := time.Date(2024, time.January, 5, 18, 0, 0, 0, loc)
	wantStarts := time.Date(2023, time.November, 10, 18, 0, 0, 0, loc)
	for i, slug := range []string{"DV", "AV", "NV"} {
		s := shifts[i]
		if s.Slug != slug || s.Name != slug {
			t.Errorf("第 %d 个班次期望 %s，实际 slug=%s name=%s", i, slug, s.Slug, s.Name)
		}
		if s.Order != i+1 {
			t.Errorf("%s 的 order 期望 %d，实际 %d", slug, i+1, s.Order)
		}
		if s.WorkplaceID != 1 || !s.Date.Equal(date) {
			t.Errorf("%s 的工作场所/日期错误", slug)
		}
		if s.RegistrationDeadline == nil || !s.RegistrationDeadline.Equal(wantDeadline) {
			t.Errorf("%s 的报名截止期望 %s，实际 %v", slug, wantDeadline, s.RegistrationDeadline)
		}
		if s.RegistrationStarts == nil || !s.RegistrationStarts.Equal(wantStarts) {
			t.Errorf("%s 的报名开始期望 %s，实际 %v", slug, wantStarts, s.RegistrationStarts)
		}
	}
	if shifts[0].RegistrationDeadline == shifts[1].RegistrationDeadline {
		t.Error("各班次应持有独立的时间值")
	}
}

func TestDayShifts_NoTemplateForWeekday(t *testing.T) {
	tuesday := dateutil.NewDate(2024, time.January, 9)
	shifts, err := DayShifts(1, tuesday, mondayTemplate(), time.UTC)
	if err != nil {
		t.Fatalf("无模板的星期不应报错: %v", err)
	}
	if len(shifts) != 0 {
		t.Errorf("期望空列表，实际 %d", len(shifts))
	}
}

func TestDayShifts_WithoutStarts(t *testing.T) {
	tmpl := model.WorkplaceSettings{WeekdayDefaults: map[string]model.DaySettings{
		"sunday": {RegistrationDeadline: "-1dT12:00", Shifts: []string{"Dag"}},
	}}
	shifts, err := DayShifts(2, dateutil.NewDate(2024, time.January, 14), tmpl, time.UTC)
	if err != nil {
		t.Fatalf("DayShifts 失败: %v", err)
	}
	if len(shifts) != 1 || shifts[0].RegistrationStarts != nil {
		t.Errorf("未配置 registration_starts 时应为 nil")
	}
}

func TestDayShifts_InvalidDuration(t *testing.T) {
	tmpl := model.WorkplaceSettings{WeekdayDefaults: map[string]model.DaySettings{
		"monday": {RegistrationDeadline: "3dT18:00", Shifts: []string{"DV"}},
	}}
	_, err := DayShifts(1, dateutil.NewDate(2024, time.January, 8), tmpl, time.UTC)
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("非法的相对时间应返回 ValidationError，实际 %v", err)
	}
}

func TestDayShifts_Deterministic(t *testing.T) {
	date := dateutil.NewDate(2024, time.January, 8)
	a, _ := DayShifts(1, date, mondayTemplate(), time.UTC)
	b, _ := DayShifts(1, date, mondayTemplate(), time.UTC)
	for i := range a {
		if a[i].Slug != b[i].Slug || !a[i].RegistrationDeadline.Equal(*b[i].RegistrationDeadline) {
			t.Errorf("第 %d 个班次两次生成结果不同", i)
		}
	}
}
