package repository

import (
	"context"
	"fmt"
	"time"

	"HoopSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlayerRepository 球员维度与球员统计表操作接口
type PlayerRepository interface {
	// UpsertPlayers 按 player_id 幂等写入名单
	UpsertPlayers(ctx context.Context, players []*model.Player) error
	// SavePlayerGameStats 事务写入球员单场统计，按 (game_id, player_id) 冲突覆盖
	SavePlayerGameStats(ctx context.Context, stats []*model.PlayerGameStat) error
	// UpsertPlayerSeasonStats 按 (player_id, season) 覆盖赛季累计
	UpsertPlayerSeasonStats(ctx context.Context, stats []*model.PlayerSeasonStat) error
	// MaxPlayerGameDate 球员统计口径的增量水位线（按已入库球员记录关联的最大比赛日期）
	MaxPlayerGameDate(ctx context.Context, season string) (*time.Time, error)
}

type playerRepository struct {
	db *gorm.DB
}

// NewPlayerRepository 创建 PlayerRepository 实例
func NewPlayerRepository(db *gorm.DB) PlayerRepository {
	return &playerRepository{db: db}
}

// UpsertPlayers 按 player_id 幂等写入名单
func (r *playerRepository) UpsertPlayers(ctx context.Context, players []*model.Player) error {
	if len(players) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name", "team_id", "is_active", "updated_at",
		}),
	}).Create(players).Error; err != nil {
		return fmt.Errorf("保存球员名单失败: %w", err)
	}
	return nil
}

// SavePlayerGameStats 事务写入球员单场统计
func (r *playerRepository) SavePlayerGameStats(ctx context.Context, stats []*model.PlayerGameStat) error {
	if len(stats) == 0 {
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

	for _, s := range stats {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "game_id"}, {Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"team_id", "minutes", "points", "rebounds", "assists", "steals",
				"blocks", "turnovers", "field_goal_pct", "three_point_pct",
				"free_throw_pct", "plus_minus", "fantasy_points", "updated_at",
			}),
		}).Create(s).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("保存球员统计失败: %w, game_id: %s, player_id: %d", err, s.GameID, s.PlayerID)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// UpsertPlayerSeasonStats 用当日总量覆盖昨日总量
func (r *playerRepository) UpsertPlayerSeasonStats(ctx context.Context, stats []*model.PlayerSeasonStat) error {
	if len(stats) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "season"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"team_id", "games_played", "wins", "losses", "win_pct", "minutes",
			"points", "rebounds", "assists", "field_goal_pct", "three_point_pct",
			"free_throw_pct", "plus_minus", "fantasy_points", "updated_at",
		}),
	}).Create(stats).Error; err != nil {
		return fmt.Errorf("保存球员赛季累计失败: %w", err)
	}
	return nil
}

// MaxPlayerGameDate 按已入库球员记录关联的最大比赛日期
func (r *playerRepository) MaxPlayerGameDate(ctx context.Context, season string) (*time.Time, error) {
	var dates []time.Time
	if err := r.db.WithContext(ctx).Model(&model.PlayerGameStat{}).
		Joins("JOIN matches ON matches.game_id = player_game_stats.game_id").
		Where("matches.season = ?", season).
		Order("matches.game_date DESC").
		Limit(1).
		Pluck("matches.game_date", &dates).Error; err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, nil
	}
	return &dates[0], nil
}
