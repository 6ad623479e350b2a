package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"HoopSync/internal/config"
	"HoopSync/internal/model"
	"HoopSync/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const moduleFeatureStore = "feature_store"

// 滚动窗口长度；min_history 可配置，窗口本身与原始特征口径保持一致
const (
	rollingWindowShort = 5
	rollingWindowLong  = 10
)

// FeatureService 赛前特征计算服务
// 核心不变量：任何特征列都不允许使用被标注比赛当场或之后的数据（时间泄漏）。
// 滚动窗口在内存中按时间升序逐队遍历实现，聚合范围恒为 [i-W, i-1]，按构造排除当前行
type FeatureService struct {
	logger      *logrus.Logger
	cfg         *config.Config
	matchRepo   repository.MatchRepository
	featureRepo repository.FeatureRepository
	auditRepo   repository.AuditRepository
}

// NewFeatureService 创建特征计算服务
func NewFeatureService(db *gorm.DB, logger *logrus.Logger, cfg *config.Config) *FeatureService {
	return &FeatureService{
		logger:      logger,
		cfg:         cfg,
		matchRepo:   repository.NewMatchRepository(db),
		featureRepo: repository.NewFeatureRepository(db),
		auditRepo:   repository.NewAuditRepository(db),
	}
}

// teamGame 球队视角的单场已完赛记录（主客两行展开）
type teamGame struct {
	gameID     string
	date       time.Time
	teamID     int64
	opponentID int64
	isHome     bool
	won        bool
	wonKnown   bool // winner_team_id 为空时视为结果不明
	points     *int
	oppPoints  *int
	offRating  *float64
	defRating  *float64
	pace       *float64
	efg        *float64
}

// ComputeFeatures 计算指定赛季全部赛前特征并 upsert 到 match_features
// 重算安全：逻辑调整后重跑按 (game_id, team_id) 覆盖，不产生重复行
func (s *FeatureService) ComputeFeatures(ctx context.Context, season string) (int, error) {
	runID := uuid.NewString()
	start := time.Now()
	s.logger.WithField("season", season).Info("开始特征计算")

	history, err := s.loadTeamHistory(ctx, season)
	if err != nil {
		recordAudit(ctx, s.auditRepo, s.logger, runID, moduleFeatureStore, auditStatusFailed,
			0, 0, err.Error(), map[string]interface{}{"season": season})
		return 0, err
	}

	var features []*model.MatchFeature
	rollingRows, h2hRows, streakRows := 0, 0, 0
	for _, games := range history {
		for i := range games {
			f := s.buildFeature(games, i)
			if f == nil {
				continue
			}
			rollingRows++
			if f.H2HWinPct != nil {
				h2hRows++
			}
			if f.CurrentStreak != 0 {
				streakRows++
			}
			features = append(features, f)
		}
	}

	if err := s.featureRepo.SaveFeatures(ctx, features); err != nil {
		recordAudit(ctx, s.auditRepo, s.logger, runID, moduleFeatureStore, auditStatusFailed,
			len(features), 0, err.Error(), map[string]interface{}{"season": season})
		return 0, err
	}

	elapsed := time.Since(start)
	recordAudit(ctx, s.auditRepo, s.logger, runID, moduleFeatureStore, auditStatusSuccess,
		len(features), len(features), "", map[string]interface{}{
			"season":          season,
			"rolling_rows":    rollingRows,
			"h2h_rows":        h2hRows,
			"streak_rows":     streakRows,
			"elapsed_seconds": math.Round(elapsed.Seconds()*100) / 100,
		})
	s.logger.Infof("特征计算完成：赛季%s共写入%d行，耗时%s", season, len(features), elapsed.Round(time.Millisecond))
	return len(features), nil
}

// loadTeamHistory 加载已完赛比赛并展开为逐队时间升序的视角序列
func (s *FeatureService) loadTeamHistory(ctx context.Context, season string) (map[int64][]teamGame, error) {
	matches, err := s.matchRepo.ListCompletedMatches(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("读取已完赛比赛失败: %w", err)
	}

	gameIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		gameIDs = append(gameIDs, m.GameID)
	}
	stats, err := s.matchRepo.ListTeamGameStats(ctx, gameIDs)
	if err != nil {
		return nil, fmt.Errorf("读取球队统计失败: %w", err)
	}
	statByKey := make(map[string]map[int64]*model.TeamGameStat, len(matches))
	for _, st := range stats {
		if statByKey[st.GameID] == nil {
			statByKey[st.GameID] = make(map[int64]*model.TeamGameStat, 2)
		}
		statByKey[st.GameID][st.TeamID] = st
	}

	history := make(map[int64][]teamGame)
	appendView := func(m *model.Match, teamID, oppID int64, isHome bool) {
		g := teamGame{
			gameID:     m.GameID,
			date:       m.GameDate,
			teamID:     teamID,
			opponentID: oppID,
			isHome:     isHome,
		}
		if m.WinnerTeamID != nil {
			g.wonKnown = true
			g.won = *m.WinnerTeamID == teamID
		}
		if own := statByKey[m.GameID][teamID]; own != nil {
			g.points = own.Points
			g.offRating = own.OffensiveRating
			g.defRating = own.DefensiveRating
			g.pace = own.Pace
			g.efg = own.EffectiveFGPct
		}
		if opp := statByKey[m.GameID][oppID]; opp != nil {
			g.oppPoints = opp.Points
		}
		history[teamID] = append(history[teamID], g)
	}
	for _, m := range matches {
		appendView(m, m.HomeTeamID, m.AwayTeamID, true)
		appendView(m, m.AwayTeamID, m.HomeTeamID, false)
	}

	// ListCompletedMatches 已按日期升序返回；这里再排一次保证逐队序列稳定
	for teamID := range history {
		games := history[teamID]
		sort.SliceStable(games, func(a, b int) bool {
			if !games[a].date.Equal(games[b].date) {
				return games[a].date.Before(games[b].date)
			}
			return games[a].gameID < games[b].gameID
		})
		history[teamID] = games
	}
	return history, nil
}

// buildFeature 计算单行特征；历史不足 min_history 场时返回 nil（质量闸门，不输出截断均值）
func (s *FeatureService) buildFeature(games []teamGame, i int) *model.MatchFeature {
	if i < s.cfg.Features.MinHistory {
		return nil
	}
	cur := games[i]

	f := &model.MatchFeature{
		GameID: cur.gameID,
		TeamID: cur.teamID,
		IsHome: cur.isHome,
	}

	// 滚动窗口趟：聚合范围 [i-W, i-1]，排除当前行与之后所有行
	short := games[max(0, i-rollingWindowShort):i]
	long := games[max(0, i-rollingWindowLong):i]
	f.WinPctLast5 = winPct(short)
	f.WinPctLast10 = winPct(long)
	f.AvgPointDiffLast5 = avgPointDiff(short)
	f.AvgPointDiffLast10 = avgPointDiff(long)
	f.AvgOffRatingLast5 = roundPtr(avgFloat(short, func(g teamGame) *float64 { return g.offRating }), 2)
	f.AvgDefRatingLast5 = roundPtr(avgFloat(short, func(g teamGame) *float64 { return g.defRating }), 2)
	f.AvgPaceLast5 = roundPtr(avgFloat(short, func(g teamGame) *float64 { return g.pace }), 2)
	f.AvgEFGLast5 = roundPtr(avgFloat(short, func(g teamGame) *float64 { return g.efg }), 3)

	// 休息天数：距本队上一场的自然日差；赛季首场取配置默认值
	if i == 0 {
		f.DaysRest = s.cfg.Features.OpenerRestDays
	} else {
		f.DaysRest = int(cur.date.Sub(games[i-1].date).Hours() / 24)
	}
	f.IsBackToBack = f.DaysRest <= s.cfg.Features.BackToBackMaxRest

	// 连胜趟：赛前连续同结果场次，胜为正败为负；无历史或结果不明为 0
	f.CurrentStreak = pregameStreak(games, i)

	// 交锋趟：仅统计与同一对手严格早于本场日期的历史交锋
	f.H2HWinPct, f.H2HAvgMargin = headToHead(games, i)

	return f
}

// winPct 窗口内胜率（3位小数）
func winPct(window []teamGame) *float64 {
	if len(window) == 0 {
		return nil
	}
	wins := 0
	for _, g := range window {
		if g.wonKnown && g.won {
			wins++
		}
	}
	v := roundTo(float64(wins)/float64(len(window)), 3)
	return &v
}

// avgPointDiff 窗口内平均净胜分（2位小数）；得分缺失的场次不参与
func avgPointDiff(window []teamGame) *float64 {
	sum, n := 0.0, 0
	for _, g := range window {
		if g.points == nil || g.oppPoints == nil {
			continue
		}
		sum += float64(*g.points - *g.oppPoints)
		n++
	}
	if n == 0 {
		return nil
	}
	v := roundTo(sum/float64(n), 2)
	return &v
}

// avgFloat 窗口内某指标均值；空值不参与，全空返回 nil
func avgFloat(window []teamGame, pick func(teamGame) *float64) *float64 {
	sum, n := 0.0, 0
	for _, g := range window {
		if v := pick(g); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	v := sum / float64(n)
	return &v
}

// pregameStreak 赛前连胜（正）/连败（负）；必须排除被标注的比赛本身
func pregameStreak(games []teamGame, i int) int {
	if i == 0 {
		return 0
	}
	last := games[i-1]
	if !last.wonKnown {
		return 0
	}
	streak := 0
	for j := i - 1; j >= 0; j-- {
		if !games[j].wonKnown || games[j].won != last.won {
			break
		}
		streak++
	}
	if last.won {
		return streak
	}
	return -streak
}

// headToHead 与当前对手严格早于本场日期的历史交锋的胜率与平均分差
func headToHead(games []teamGame, i int) (*float64, *float64) {
	cur := games[i]
	wins, met := 0, 0
	marginSum, marginN := 0.0, 0
	for j := 0; j < i; j++ {
		prev := games[j]
		if prev.opponentID != cur.opponentID || !prev.date.Before(cur.date) {
			continue
		}
		met++
		if prev.wonKnown && prev.won {
			wins++
		}
		if prev.points != nil && prev.oppPoints != nil {
			marginSum += float64(*prev.points - *prev.oppPoints)
			marginN++
		}
	}
	if met == 0 {
		return nil, nil
	}
	pct := roundTo(float64(wins)/float64(met), 3)
	var margin *float64
	if marginN > 0 {
		m := roundTo(marginSum/float64(marginN), 2)
		margin = &m
	}
	return &pct, margin
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func roundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	r := roundTo(*v, places)
	return &r
}
