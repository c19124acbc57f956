package service

import (
	"context"
	"crucible_backend/internal/model"
	"crucible_backend/internal/util"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ActivityRequest struct {
	CourseID           uint              `json:"courseId"`
	Name               string            `json:"name" binding:"required"`
	Intro              string            `json:"intro"`
	EventTemplateID    string            `json:"eventTemplateId" binding:"required"`
	ScenarioTemplateID string            `json:"scenarioTemplateId"`
	MaxGrade           float64           `json:"maxGrade"`
	GradeMethod        model.GradeMethod `json:"gradeMethod"`
	MultiVMScoring     string            `json:"multiVmScoring"`
	ExtendEvent        bool              `json:"extendEvent"`
	TimeOpen           *time.Time        `json:"timeOpen"`
	TimeClose          *time.Time        `json:"timeClose"`
}

type ActivityService struct {
	Activities ActivityStore
	Log        *zap.Logger
}

func NewActivityService(activities ActivityStore, log *zap.Logger) *ActivityService {
	return &ActivityService{Activities: activities, Log: log}
}

// validate 未知的评分方式直接拒绝，不回退到默认策略
func (req *ActivityRequest) validate() error {
	if _, err := uuid.Parse(req.EventTemplateID); err != nil {
		return fmt.Errorf("%w: eventTemplateId must be a uuid", util.ErrInvalidInput)
	}
	if req.ScenarioTemplateID != "" {
		if _, err := uuid.Parse(req.ScenarioTemplateID); err != nil {
			return fmt.Errorf("%w: scenarioTemplateId must be a uuid", util.ErrInvalidInput)
		}
	}
	if req.GradeMethod == 0 {
		req.GradeMethod = model.GradeHighest
	}
	if !req.GradeMethod.Valid() {
		return fmt.Errorf("%w: %w: %d", util.ErrInvalidInput, util.ErrUnknownGradeMethod, req.GradeMethod)
	}
	switch req.MultiVMScoring {
	case "":
		req.MultiVMScoring = model.MultiVMProportional
	case model.MultiVMProportional, model.MultiVMPerVM:
	default:
		return fmt.Errorf("%w: unknown multi-vm scoring %q", util.ErrInvalidInput, req.MultiVMScoring)
	}
	if req.MaxGrade < 0 {
		return fmt.Errorf("%w: maxGrade must not be negative", util.ErrInvalidInput)
	}
	if req.MaxGrade == 0 {
		req.MaxGrade = 100
	}
	if req.TimeOpen != nil && req.TimeClose != nil && req.TimeClose.Before(*req.TimeOpen) {
		return fmt.Errorf("%w: timeClose is before timeOpen", util.ErrInvalidInput)
	}
	return nil
}

func (req *ActivityRequest) apply(a *model.Activity) {
	a.CourseID = req.CourseID
	a.Name = req.Name
	a.Intro = req.Intro
	a.EventTemplateID = req.EventTemplateID
	a.ScenarioTemplateID = req.ScenarioTemplateID
	a.MaxGrade = req.MaxGrade
	a.GradeMethod = req.GradeMethod
	a.MultiVMScoring = req.MultiVMScoring
	a.ExtendEvent = req.ExtendEvent
	a.TimeOpen = req.TimeOpen
	a.TimeClose = req.TimeClose
}

func (s *ActivityService) Create(ctx context.Context, req ActivityRequest) (*model.Activity, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	a := &model.Activity{}
	req.apply(a)
	if err := s.Activities.Create(ctx, a); err != nil {
		return nil, err
	}
	s.Log.Info("Activity created", zap.Uint("activity_id", a.ID), zap.String("name", a.Name))
	return a, nil
}

func (s *ActivityService) Update(ctx context.Context, id uint, req ActivityRequest) (*model.Activity, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	a, err := s.Activities.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(a)
	if err := s.Activities.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *ActivityService) Get(ctx context.Context, id uint) (*model.Activity, error) {
	return s.Activities.FindByID(ctx, id)
}

func (s *ActivityService) List(ctx context.Context, courseID uint) ([]model.Activity, error) {
	return s.Activities.ListByCourse(ctx, courseID)
}
