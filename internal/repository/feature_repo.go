package repository

import (
	"context"
	"fmt"

	"HoopSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeatureRepository 派生特征表操作接口
type FeatureRepository interface {
	// SaveFeatures 事务写入特征，按 (game_id, team_id) 冲突覆盖——重算安全，不产生重复行
	SaveFeatures(ctx context.Context, features []*model.MatchFeature) error
	// CountBySeason 统计指定赛季已有特征行数
	CountBySeason(ctx context.Context, season string) (int64, error)
	// ListByGame 查询单场比赛的特征行（两队各一行）
	ListByGame(ctx context.Context, gameID string) ([]*model.MatchFeature, error)
}

type featureRepository struct {
	db *gorm.DB
}

// NewFeatureRepository 创建 FeatureRepository 实例
func NewFeatureRepository(db *gorm.DB) FeatureRepository {
	return &featureRepository{db: db}
}

// SaveFeatures 事务写入特征
func (r *featureRepository) SaveFeatures(ctx context.Context, features []*model.MatchFeature) error {
	if len(features) == 0 {
		return nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("开启事务失败: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
		}
	}()

	for _, f := range features {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "game_id"}, {Name: "team_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"win_pct_last_5", "win_pct_last_10",
				"avg_point_diff_last_5", "avg_point_diff_last_10",
				"avg_off_rating_last_5", "avg_def_rating_last_5",
				"avg_pace_last_5", "avg_efg_last_5",
				"is_home", "days_rest", "is_back_to_back", "current_streak",
				"h2h_win_pct", "h2h_avg_margin", "updated_at",
			}),
		}).Create(f).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("保存特征失败: %w, game_id: %s, team_id: %d", err, f.GameID, f.TeamID)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// CountBySeason 统计指定赛季已有特征行数
func (r *featureRepository) CountBySeason(ctx context.Context, season string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.MatchFeature{}).
		Joins("JOIN matches ON matches.game_id = match_features.game_id").
		Where("matches.season = ?", season).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListByGame 查询单场比赛的特征行
func (r *featureRepository) ListByGame(ctx context.Context, gameID string) ([]*model.MatchFeature, error) {
	var features []*model.MatchFeature
	if err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("team_id ASC").
		Find(&features).Error; err != nil {
		return nil, err
	}
	return features, nil
}
