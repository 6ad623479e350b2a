package repository

import (
	"context"
	"fmt"

	"HoopSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TeamRepository 球队维度表操作接口
type TeamRepository interface {
	// UpsertTeams 按 team_id 幂等写入；重复写入只覆盖非键列
	UpsertTeams(ctx context.Context, teams []*model.Team) error
	// ListTeams 获取全部球队
	ListTeams(ctx context.Context) ([]*model.Team, error)
}

type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository 创建 TeamRepository 实例
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

// UpsertTeams 按 team_id 幂等写入
func (r *teamRepository) UpsertTeams(ctx context.Context, teams []*model.Team) error {
	if len(teams) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "team_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"abbreviation", "full_name", "city", "conference", "division", "updated_at",
		}),
	}).Create(teams).Error; err != nil {
		return fmt.Errorf("保存球队失败: %w", err)
	}
	return nil
}

// ListTeams 获取全部球队
func (r *teamRepository) ListTeams(ctx context.Context) ([]*model.Team, error) {
	var teams []*model.Team
	if err := r.db.WithContext(ctx).Order("team_id ASC").Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}
