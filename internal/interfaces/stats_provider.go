package interfaces

import (
	"context"

	"HoopSync/internal/model"
)

// StatsProvider 上游统计数据源必须实现的核心接口
// 所有方法都是纯读操作，调用方可以安全重试
type StatsProvider interface {
	GetName() string                                                                                     // 数据源名称
	FetchTeams(ctx context.Context) ([]model.StatsTeam, error)                                           // 拉取全部球队
	FetchTeamGameLog(ctx context.Context, teamID int64, season string) ([]model.StatsTeamGameLog, error) // 拉取单队赛季比赛记录
	FetchPlayers(ctx context.Context, season string) ([]model.StatsPlayer, error)                        // 拉取赛季球员名单
	FetchPlayerGameLogs(ctx context.Context, season string) ([]model.StatsPlayerGameLog, error)          // 拉取全联盟球员单场记录
	FetchPlayerSeasonStats(ctx context.Context, season string) ([]model.StatsPlayerSeason, error)        // 拉取球员赛季累计
}
