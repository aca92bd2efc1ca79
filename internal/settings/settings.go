// Package settings 校验工作场所模板配置。
//
// 校验是整体性的：任何一处不合法（包括未知键）都会拒绝整个更新，
// 通过校验后返回规范化（空白折叠）的 model.WorkplaceSettings。
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Mortal/shiftplanner/internal/model"
	pkgerrors "github.com/Mortal/shiftplanner/pkg/errors"
	"github.com/Mortal/shiftplanner/pkg/reltime"
)

const (
	minViewDay = -100
	maxViewDay = 100
)

var viewDayPattern = regexp.MustCompile(`^([+-]?\d+)d$`)

// 请求体的严格形态，DisallowUnknownFields 对嵌套结构同样生效
type dayInput struct {
	RegistrationStarts   *string  `json:"registration_starts"`
	RegistrationDeadline string   `json:"registration_deadline"`
	Shifts               []string `json:"shifts"`
}

type settingsInput struct {
	WeekdayDefaults map[string]dayInput `json:"weekday_defaults"`
	DefaultViewDay  *string             `json:"default_view_day"`
}

// Validator 模板校验器
type Validator struct {
	v *validator.Validate
}

// New 创建校验器并注册 reltime 规则
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	_ = v.RegisterValidation("reltime", func(fl validator.FieldLevel) bool {
		_, err := reltime.Parse(fl.Field().String())
		return err == nil
	})
	return &Validator{v: v}
}

// Parse 解析并校验原始 JSON；成功时返回规范化后的配置
func (val *Validator) Parse(raw []byte) (model.WorkplaceSettings, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var in settingsInput
	if err := dec.Decode(&in); err != nil {
		return model.WorkplaceSettings{}, pkgerrors.Validation("settings", "%v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return model.WorkplaceSettings{}, pkgerrors.Validation("settings", "JSON 之后存在多余内容")
	}

	out := model.WorkplaceSettings{}
	if in.DefaultViewDay != nil {
		if err := validateViewDay(*in.DefaultViewDay); err != nil {
			return model.WorkplaceSettings{}, err
		}
		out.DefaultViewDay = *in.DefaultViewDay
	}

	if len(in.WeekdayDefaults) > 0 {
		out.WeekdayDefaults = make(map[string]model.DaySettings, len(in.WeekdayDefaults))
	}
	for name := range in.WeekdayDefaults {
		if !isWeekday(name) {
			return model.WorkplaceSettings{}, pkgerrors.Validation("weekday_defaults", "未知的星期 %q", name)
		}
	}
	for _, name := range model.Weekdays {
		day, ok := in.WeekdayDefaults[name]
		if !ok {
			continue
		}
		ds := model.DaySettings{
			RegistrationDeadline: day.RegistrationDeadline,
			Shifts:               normalizeAll(day.Shifts),
		}
		if day.RegistrationStarts != nil {
			ds.RegistrationStarts = *day.RegistrationStarts
		}
		if err := val.ValidateDay(name, ds); err != nil {
			return model.WorkplaceSettings{}, err
		}
		out.WeekdayDefaults[name] = ds
	}
	return out, nil
}

// ValidateDay 校验单日配置（班次列表、报名起止）
func (val *Validator) ValidateDay(weekday string, ds model.DaySettings) error {
	field := "weekday_defaults." + weekday
	if err := val.v.Struct(ds); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return pkgerrors.Validation(field+"."+fe.Field(), "不满足规则 %s", describeTag(fe))
		}
		return pkgerrors.Validation(field, "%v", err)
	}
	if ds.RegistrationStarts == "" {
		return nil
	}
	starts, _ := reltime.Parse(ds.RegistrationStarts)
	deadline, _ := reltime.Parse(ds.RegistrationDeadline)
	if !starts.Before(deadline) {
		return pkgerrors.Validation(field, "registration_starts 必须早于 registration_deadline")
	}
	return nil
}

func describeTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
}

func validateViewDay(s string) error {
	m := viewDayPattern.FindStringSubmatch(s)
	if m == nil {
		return pkgerrors.Validation("default_view_day", "格式应为带符号整数加 d，如 -2d")
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < minViewDay || n > maxViewDay {
		return pkgerrors.Validation("default_view_day", "取值范围 [%d, %d]", minViewDay, maxViewDay)
	}
	return nil
}

func isWeekday(name string) bool {
	for _, wd := range model.Weekdays {
		if wd == name {
			return true
		}
	}
	return false
}

// normalizeAll 折叠每个名称中的连续空白
func normalizeAll(names []string) []string {
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.Join(strings.Fields(n), " ")
	}
	return out
}
