package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/Mortal/shiftplanner/internal/changelog"
	"github.com/Mortal/shiftplanner/internal/dto"
	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/internal/repository"
	"github.com/Mortal/shiftplanner/internal/settings"
	"github.com/Mortal/shiftplanner/pkg/clock"
)

// WorkplaceService 工作场所配置业务接口
type WorkplaceService interface {
	Get(ctx context.Context, id int64) (*dto.WorkplaceResponse, error)
	// UpdateSettings 整体校验后替换模板配置；已持久化的未知键原样保留
	UpdateSettings(ctx context.Context, id int64, raw []byte, actor changelog.Actor) (*dto.WorkplaceResponse, error)
}

type workplaceService struct {
	repo      *repository.Repository
	validator *settings.Validator
	recorder  changelog.Recorder
	clock     clock.Clock
	logger    *zap.Logger
}

// NewWorkplaceService 创建 WorkplaceService 实例
func NewWorkplaceService(d Deps, v *settings.Validator) WorkplaceService {
	d.fill()
	return &workplaceService{repo: d.Repo, validator: v, recorder: d.Recorder, clock: d.Clock, logger: d.Logger}
}

// ────────────────────── Get ──────────────────────

func (s *workplaceService) Get(ctx context.Context, id int64) (*dto.WorkplaceResponse, error) {
	wp, _, err := loadWorkplace(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return toWorkplaceResponse(wp)
}

// ────────────────────── UpdateSettings ──────────────────────

func (s *workplaceService) UpdateSettings(ctx context.Context, id int64, raw []byte, actor changelog.Actor) (*dto.WorkplaceResponse, error) {
	next, err := s.validator.Parse(raw)
	if err != nil {
		return nil, err
	}

	wp, _, err := loadWorkplace(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	old := wp.Settings
	next.Extra = old.Extra

	if err := s.repo.Workplace.UpdateSettings(ctx, id, next); err != nil {
		s.logger.Error("更新工作场所配置失败", zap.Int64("workplace_id", id), zap.Error(err))
		return nil, err
	}
	wp.Settings = next

	s.recorder.Record(ctx, changelog.Entry{
		WorkplaceID: id,
		Kind:        model.ChangelogEditSettings,
		Data: map[string]interface{}{
			"old": settingsData(old),
			"new": settingsData(next),
		},
		Actor: actor,
		Time:  s.clock.Now(),
	})

	return toWorkplaceResponse(wp)
}

func toWorkplaceResponse(wp *model.Workplace) (*dto.WorkplaceResponse, error) {
	b, err := json.Marshal(wp.Settings)
	if err != nil {
		return nil, err
	}
	resp := &dto.WorkplaceResponse{
		ID:       wp.ID,
		Slug:     wp.Slug,
		Name:     wp.Name,
		Timezone: wp.Timezone,
		Settings: b,
	}
	if wp.PrunedBefore != nil {
		resp.PrunedBefore = wp.PrunedBefore.String()
	}
	return resp, nil
}

// settingsData 转为变更日志可存储的通用结构
func settingsData(s model.WorkplaceSettings) interface{} {
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}
