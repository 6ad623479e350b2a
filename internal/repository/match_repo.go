package repository

import (
	"context"
	"fmt"
	"time"

	"HoopSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatchRepository 比赛事实表操作接口
type MatchRepository interface {
	// SaveTeamGames 单队一批比赛记录的事务写入（比赛 + 球队单场统计）
	SaveTeamGames(ctx context.Context, matches []*model.Match, stats []*model.TeamGameStat) error
	// MaxCompletedGameDate 水位线：指定赛季已完赛比赛的最大日期；无数据返回 nil（首次全量同步）
	MaxCompletedGameDate(ctx context.Context, season string) (*time.Time, error)
	// ListCompletedMatches 按日期升序列出指定赛季的已完赛比赛
	ListCompletedMatches(ctx context.Context, season string) ([]*model.Match, error)
	// ListTeamGameStats 批量查询比赛对应的球队统计
	ListTeamGameStats(ctx context.Context, gameIDs []string) ([]*model.TeamGameStat, error)
}

type matchRepository struct {
	db *gorm.DB
}

// NewMatchRepository 创建 MatchRepository 实例
func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &matchRepository{db: db}
}

// SaveTeamGames 事务写入一支球队赛季内的比赛与统计
// 同一场比赛会被参赛双方各上报一次：比赛行按 game_id 冲突合并，
// 分数只在新值非空时覆盖（主队视角只带主队得分，客队视角补齐客队得分）
func (r *matchRepository) SaveTeamGames(ctx context.Context, matches []*model.Match, stats []*model.TeamGameStat) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("开启事务失败: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
		}
	}()

	for _, m := range matches {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "game_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"winner_team_id": gorm.Expr("COALESCE(excluded.winner_team_id, matches.winner_team_id)"),
				"home_score":     gorm.Expr("COALESCE(excluded.home_score, matches.home_score)"),
				"away_score":     gorm.Expr("COALESCE(excluded.away_score, matches.away_score)"),
				"is_completed":   gorm.Expr("excluded.is_completed"),
				"updated_at":     gorm.Expr("excluded.updated_at"),
			}),
		}).Create(m).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("保存比赛失败: %w, game_id: %s", err, m.GameID)
		}
	}

	for _, s := range stats {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "game_id"}, {Name: "team_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"points", "rebounds", "assists", "steals", "blocks", "turnovers",
				"field_goal_pct", "three_point_pct", "free_throw_pct",
				"offensive_rating", "defensive_rating", "pace", "effective_fg_pct",
				"updated_at",
			}),
		}).Create(s).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("保存球队统计失败: %w, game_id: %s, team_id: %d", err, s.GameID, s.TeamID)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// MaxCompletedGameDate 只信任已完赛的比赛：未完赛的未来赛程不能成为假水位线
func (r *matchRepository) MaxCompletedGameDate(ctx context.Context, season string) (*time.Time, error) {
	var dates []time.Time
	if err := r.db.WithContext(ctx).Model(&model.Match{}).
		Where("season = ? AND is_completed = ?", season, true).
		Order("game_date DESC").
		Limit(1).
		Pluck("game_date", &dates).Error; err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, nil
	}
	return &dates[0], nil
}

// ListCompletedMatches 按日期升序列出指定赛季的已完赛比赛
func (r *matchRepository) ListCompletedMatches(ctx context.Context, season string) ([]*model.Match, error) {
	var matches []*model.Match
	if err := r.db.WithContext(ctx).
		Where("season = ? AND is_completed = ?", season, true).
		Order("game_date ASC, game_id ASC").
		Find(&matches).Error; err != nil {
		return nil, err
	}
	return matches, nil
}

// ListTeamGameStats 批量查询比赛对应的球队统计
func (r *matchRepository) ListTeamGameStats(ctx context.Context, gameIDs []string) ([]*model.TeamGameStat, error) {
	if len(gameIDs) == 0 {
		return []*model.TeamGameStat{}, nil
	}
	var stats []*model.TeamGameStat
	if err := r.db.WithContext(ctx).
		Where("game_id IN ?", gameIDs).
		Find(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
