// Package materialize 根据每周模板生成某一天的具体班次。
package materialize

import (
	"time"

	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
	"github.com/Mortal/shiftplanner/pkg/reltime"
)

// DayShifts 返回 date 当天按模板生成的班次（未持久化）。
// 该星期没有模板时返回空列表；报名窗口以 date 为基准在 loc 时区下解析并冻结到班次上。
func DayShifts(workplaceID int64, date dateutil.Date, settings model.WorkplaceSettings, loc *time.Location) ([]model.Shift, error) {
	day, ok := settings.DayFor(date)
	if !ok {
		return nil, nil
	}

	deadline, err := reltime.Resolve(date, day.RegistrationDeadline, loc)
	if err != nil {
		return nil, err
	}
	var starts *time.Time
	if day.RegistrationStarts != "" {
		t, err := reltime.Resolve(date, day.RegistrationStarts, loc)
		if err != nil {
			return nil, err
		}
		starts = &t
	}

	shifts := make([]model.Shift, 0, len(day.Shifts))
	for i, name := range day.Shifts {
		d := deadline
		shift := model.Shift{
			WorkplaceID:          workplaceID,
			Date:                 date,
			Order:                i + 1,
			Slug:                 name,
			Name:                 name,
			RegistrationDeadline: &d,
			Settings:             model.JSONMap{},
		}
		if starts != nil {
			s := *starts
			shift.RegistrationStarts = &s
		}
		shifts = append(shifts, shift)
	}
	return shifts, nil
}
