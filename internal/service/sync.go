package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"HoopSync/internal/config"
	"HoopSync/internal/interfaces"
	"HoopSync/internal/model"
	"HoopSync/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrSyncInProgress 同一时间只允许一次同步运行（单写者批处理假设）
var ErrSyncInProgress = errors.New("已有同步任务在运行中")

// 各入库步骤的审计模块名
const (
	moduleIngestTeams        = "ingest_teams"
	moduleIngestGames        = "ingest_games"
	moduleIngestPlayers      = "ingest_players"
	moduleIngestPlayerGames  = "ingest_player_games"
	moduleIngestPlayerSeason = "ingest_player_season"
)

// SyncSummary 单次同步运行的汇总结果
type SyncSummary struct {
	Processed       int               // 处理的上游记录总数
	Inserted        int               // 去重后写入的比赛数
	PerEntityErrors map[string]string // 单实体失败明细（键为球队缩写或步骤名）
}

// SyncService 入库编排服务：驱动上游拉取并幂等写入
// 固定执行顺序：球队维度 → 比赛事实 → 球员维度 → 球员事实；
// 事实行持有维度外键，顺序不可调换
type SyncService struct {
	logger     *logrus.Logger
	cfg        *config.Config
	provider   interfaces.StatsProvider
	teamRepo   repository.TeamRepository
	matchRepo  repository.MatchRepository
	playerRepo repository.PlayerRepository
	auditRepo  repository.AuditRepository
	running    atomic.Bool
}

// NewSyncService 创建同步服务
func NewSyncService(db *gorm.DB, logger *logrus.Logger, cfg *config.Config, provider interfaces.StatsProvider) *SyncService {
	return &SyncService{
		logger:     logger,
		cfg:        cfg,
		provider:   provider,
		teamRepo:   repository.NewTeamRepository(db),
		matchRepo:  repository.NewMatchRepository(db),
		playerRepo: repository.NewPlayerRepository(db),
		auditRepo:  repository.NewAuditRepository(db),
	}
}

// SyncAll 完整同步入口；重复执行收敛到相同存储状态（幂等）
func (s *SyncService) SyncAll(ctx context.Context, season string) (*SyncSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.running.Store(false)

	runID := uuid.NewString()
	summary := &SyncSummary{PerEntityErrors: map[string]string{}}
	s.logger.WithFields(logrus.Fields{"run_id": runID, "season": season}).
		Infof("开始完整同步（数据源：%s）", s.provider.GetName())

	// 1. 球队维度：失败则中止本次运行（后续事实行依赖球队外键）
	if err := s.syncTeams(ctx, runID, summary); err != nil {
		return summary, err
	}

	// 2. 比赛事实 + 球队单场统计：单队失败不阻塞整次运行
	if err := s.syncSeasonGames(ctx, runID, season, summary); err != nil {
		return summary, err
	}

	// 3. 球员名单：失败只记录，不中止
	s.syncPlayers(ctx, runID, season, summary)

	// 4. 球员单场统计：失败只记录，不中止
	s.syncPlayerGameLogs(ctx, runID, season, summary)

	// 5. 球员赛季累计：失败只记录，不中止
	s.syncPlayerSeasonStats(ctx, runID, season, summary)

	s.logger.WithFields(logrus.Fields{
		"run_id":    runID,
		"processed": summary.Processed,
		"inserted":  summary.Inserted,
		"errors":    len(summary.PerEntityErrors),
	}).Info("完整同步结束")
	return summary, nil
}

// syncTeams 同步球队维度表
func (s *SyncService) syncTeams(ctx context.Context, runID string, summary *SyncSummary) error {
	raw, err := s.provider.FetchTeams(ctx)
	if err != nil {
		recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestTeams, auditStatusFailed,
			0, 0, err.Error(), nil)
		return fmt.Errorf("同步球队失败: %w", err)
	}

	teams := make([]*model.Team, 0, len(raw))
	for _, t := range raw {
		teams = append(teams, &model.Team{
			TeamID:       t.TeamID,
			Abbreviation: t.Abbreviation,
			FullName:     t.FullName,
			City:         t.City,
			Conference:   t.Conference,
			Division:     t.Division,
		})
	}
	if err := s.teamRepo.UpsertTeams(ctx, teams); err != nil {
		recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestTeams, auditStatusFailed,
			len(raw), 0, err.Error(), nil)
		return err
	}

	summary.Processed += len(teams)
	recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestTeams, auditStatusSuccess,
		len(teams), len(teams), "", nil)
	s.logger.Infof("球队同步完成，共%d支", len(teams))
	return nil
}

// syncSeasonGames 同步比赛事实与球队单场统计
// 每场比赛会被参赛双方各上报一次：用本次运行内的 seen 集合去重计数，
// 比赛行仍按两个视角各 upsert 一次以合并主客场得分
func (s *SyncService) syncSeasonGames(ctx context.Context, runID string, season string, summary *SyncSummary) error {
	watermark, err := s.matchRepo.MaxCompletedGameDate(ctx, season)
	if err != nil {
		recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestGames, auditStatusFailed,
			0, 0, err.Error(), nil)
		return fmt.Errorf("解析水位线失败: %w", err)
	}
	if watermark != nil {
		s.logger.Infof("增量同步：只拉取 %s 及之后的比赛", watermark.Format(model.GameDateLayout))
	} else {
		s.logger.Info("全量同步：赛季内尚无已完赛比赛")
	}

	teams, err := s.teamRepo.ListTeams(ctx)
	if err != nil {
		recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestGames, auditStatusFailed,
			0, 0, err.Error(), nil)
		return fmt.Errorf("读取球队列表失败: %w", err)
	}
	teamIDByAbbrev := make(map[string]int64, len(teams))
	for _, t := range teams {
		teamIDByAbbrev[t.Abbreviation] = t.TeamID
	}

	// 本次运行内已见比赛集合：显式按运行生命周期传递，不做包级变量
	seen := make(map[string]struct{})
	processed, gameCount := 0, 0

	for i, team := range teams {
		s.logger.Infof("  [%d/%d] 拉取 %s 的比赛记录...", i+1, len(teams), team.Abbreviation)

		logs, err := s.provider.FetchTeamGameLog(ctx, team.TeamID, season)
		if err != nil {
			// 错误隔离单位是一支球队：记录后继续下一队
			s.logger.WithError(err).WithField("team", team.Abbreviation).Warn("拉取球队比赛记录失败，跳过该队")
			summary.PerEntityErrors[team.Abbreviation] = err.Error()
			continue
		}

		var matches []*model.Match
		var stats []*model.TeamGameStat
		for _, g := range logs {
			date, err := g.Date()
			if err != nil {
				s.logger.WithError(err).Warn("比赛日期异常，跳过该行")
				continue
			}
			if watermark != nil && date.Before(*watermark) {
				continue
			}

			oppID, ok := teamIDByAbbrev[g.OpponentAbbrev()]
			if !ok {
				s.logger.WithFields(logrus.Fields{
					"game_id": g.GameID,
					"matchup": g.Matchup,
				}).Warn("无法识别对手球队，跳过该行")
				continue
			}

			isHome := g.IsHomeGame()
			homeTeamID, awayTeamID := team.TeamID, oppID
			if !isHome {
				homeTeamID, awayTeamID = oppID, team.TeamID
			}

			var winnerID *int64
			switch g.WinLoss {
			case "W":
				id := team.TeamID
				winnerID = &id
			case "L":
				id := oppID
				winnerID = &id
			}

			m := &model.Match{
				GameID:       g.GameID,
				GameDate:     date,
				Season:       season,
				HomeTeamID:   homeTeamID,
				AwayTeamID:   awayTeamID,
				WinnerTeamID: winnerID,
				IsCompleted:  g.Completed(),
			}
			// 本队视角只带本队得分；另一侧由对手视角的 upsert 合并补齐
			if isHome {
				m.HomeScore = g.Points
			} else {
				m.AwayScore = g.Points
			}
			matches = append(matches, m)

			stats = append(stats, &model.TeamGameStat{
				GameID:          g.GameID,
				TeamID:          team.TeamID,
				Points:          g.Points,
				Rebounds:        g.Rebounds,
				Assists:         g.Assists,
				Steals:          g.Steals,
				Blocks:          g.Blocks,
				Turnovers:       g.Turnovers,
				FieldGoalPct:    g.FieldGoalPct,
				ThreePointPct:   g.ThreePointPct,
				FreeThrowPct:    g.FreeThrowPct,
				OffensiveRating: g.OffensiveRating,
				DefensiveRating: g.DefensiveRating,
				Pace:            g.Pace,
				EffectiveFGPct:  g.EffectiveFGPct,
			})
			processed++
		}

		if len(matches) == 0 {
			s.logger.Infof("    %s 无新比赛", team.Abbreviation)
			continue
		}

		if err := s.matchRepo.SaveTeamGames(ctx, matches, stats); err != nil {
			s.logger.WithError(err).WithField("team", team.Abbreviation).Warn("入库失败，跳过该队")
			summary.PerEntityErrors[team.Abbreviation] = err.Error()
			continue
		}

		for _, m := range matches {
			if _, ok := seen[m.GameID]; !ok {
				seen[m.GameID] = struct{}{}
				gameCount++
			}
		}
	}

	summary.Processed += processed
	summary.Inserted += gameCount

	detail := map[string]interface{}{"season": season, "unique_games": gameCount}
	errText := ""
	if len(summary.PerEntityErrors) > 0 {
		detail["failed_teams"] = summary.PerEntityErrors
		errText = fmt.Sprintf("%d支球队同步失败", len(summary.PerEntityErrors))
	}
	recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestGames, auditStatusSuccess,
		processed, gameCount, errText, detail)
	s.logger.Infof("比赛同步完成：赛季%s共%d场（去重后）", season, gameCount)
	return nil
}

// syncPlayers 同步球员名单；TEAM_ID 为 0 表示自由球员，置空
func (s *SyncService) syncPlayers(ctx context.Context, runID string, season string, summary *SyncSummary) {
	raw, err := s.provider.FetchPlayers(ctx, season)
	if err != nil {
		s.logger.WithError(err).Warn("拉取球员名单失败")
		summary.PerEntityErrors["players"] = err.Error()
		recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestPlayers, auditStatusFailed,
			0, 0, err.Error(), nil)
		return
	}

	players := make([]*model.Player, 0, len(raw))
	for _, p := range raw {
		player := &model.Player{
			PlayerID: p.PlayerID,
			FullName: p.FullName,
			IsActive: true,
		}
		if p.TeamID != 0 {
			id := p.TeamID
			player.TeamID = &id
		}
		players = append(players, player)
	}

	if err := s.playerRepo.UpsertPlayers(ctx, players); err != nil {
		s.logger.WithError(err).Warn("球员名单入库失败")
		summary.PerEntityErrors["players"] = err.Error()
		recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestPlayers, auditStatusFailed,
			len(raw), 0, err.Error(), nil)
		return
	}

	summary.Processed += len(players)
	recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestPlayers, auditStatusSuccess,
		len(players), len(players), "", nil)
	s.logger.Infof("球员名单同步完成，共%d人", len(players))
}

// syncPlayerGameLogs 同步球员单场统计（全联盟一次拉取，按水位线增量过滤）
func (s *SyncService) syncPlayerGameLogs(ctx context.Context, runID string, season string, summary *SyncSummary) {
	watermark, err := s.playerRepo.MaxPlayerGameDate(ctx, season)
	if err != nil {
		s.logger.WithError(err).Warn("解析球员统计水位线失败")
		summary.PerEntityErrors["player_games"] = err.Error()
		recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestPlayerGames, auditStatusFailed,
			0, 0, err.Error(), nil)
		return
	}

	raw, err := s.provider.FetchPlayerGameLogs(ctx, season)
	if err != nil {
		s.logger.WithError(err).Warn("拉取球员比赛记录失败")
		summary.PerEntityErrors["player_games"] = err.Error()
		recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestPlayerGames, auditStatusFailed,
			0, 0, err.Error(), nil)
		return
	}

	stats := make([]*model.PlayerGameStat, 0, len(raw))
	for _, g := range raw {
		date, err := g.Date()
		if err != nil {
			s.logger.WithError(err).Warn("球员比赛日期异常，跳过该行")
			continue
		}
		if watermark != nil && date.Before(*watermark) {
			continue
		}
		stats = append(stats, &model.PlayerGameStat{
			GameID:        g.GameID,
			PlayerID:      g.PlayerID,
			TeamID:        g.TeamID,
			Minutes:       g.Minutes,
			Points:        g.Points,
			Rebounds:      g.Rebounds,
			Assists:       g.Assists,
			Steals:        g.Steals,
			Blocks:        g.Blocks,
			Turnovers:     g.Turnovers,
			FieldGoalPct:  g.FieldGoalPct,
			ThreePointPct: g.ThreePointPct,
			FreeThrowPct:  g.FreeThrowPct,
			PlusMinus:     g.PlusMinus,
			FantasyPoints: g.FantasyPoints,
		})
	}

	if err := s.playerRepo.SavePlayerGameStats(ctx, stats); err != nil {
		s.logger.WithError(err).Warn("球员统计入库失败")
		summary.PerEntityErrors["player_games"] = err.Error()
		recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestPlayerGames, auditStatusFailed,
			len(raw), 0, err.Error(), nil)
		return
	}

	summary.Processed += len(stats)
	recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestPlayerGames, auditStatusSuccess,
		len(raw), len(stats), "", map[string]interface{}{"season": season})
	s.logger.Infof("球员单场统计同步完成，共%d行", len(stats))
}

// syncPlayerSeasonStats 同步球员赛季累计（当日总量覆盖昨日总量）
func (s *SyncService) syncPlayerSeasonStats(ctx context.Context, runID string, season string, summary *SyncSummary) {
	raw, err := s.provider.FetchPlayerSeasonStats(ctx, season)
	if err != nil {
		s.logger.WithError(err).Warn("拉取球员赛季累计失败")
		summary.PerEntityErrors["player_season"] = err.Error()
		recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestPlayerSeason, auditStatusFailed,
			0, 0, err.Error(), nil)
		return
	}

	stats := make([]*model.PlayerSeasonStat, 0, len(raw))
	for _, r := range raw {
		st := &model.PlayerSeasonStat{
			PlayerID:      r.PlayerID,
			Season:        season,
			GamesPlayed:   r.GamesPlayed,
			Wins:          r.Wins,
			Losses:        r.Losses,
			WinPct:        r.WinPct,
			Minutes:       r.Minutes,
			Points:        r.Points,
			Rebounds:      r.Rebounds,
			Assists:       r.Assists,
			FieldGoalPct:  r.FieldGoalPct,
			ThreePointPct: r.ThreePointPct,
			FreeThrowPct:  r.FreeThrowPct,
			PlusMinus:     r.PlusMinus,
			FantasyPoints: r.FantasyPoints,
		}
		if r.TeamID != 0 {
			id := r.TeamID
			st.TeamID = &id
		}
		stats = append(stats, st)
	}

	if err := s.playerRepo.UpsertPlayerSeasonStats(ctx, stats); err != nil {
		s.logger.WithError(err).Warn("球员赛季累计入库失败")
		summary.PerEntityErrors["player_season"] = err.Error()
		recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestPlayerSeason, auditStatusFailed,
			len(raw), 0, err.Error(), nil)
		return
	}

	summary.Processed += len(stats)
	recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIngestPlayerSeason, auditStatusSuccess,
		len(raw), len(stats), "", map[string]interface{}{"season": season})
	s.logger.Infof("球员赛季累计同步完成，共%d人", len(stats))
}
