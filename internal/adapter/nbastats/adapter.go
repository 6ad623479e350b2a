package nbastats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"HoopSync/internal/config"
	"HoopSync/internal/interfaces"
	"HoopSync/internal/model"
	"HoopSync/internal/utils/httpclient"
	"HoopSync/internal/utils/retry"

	"github.com/sirupsen/logrus"
)

// Adapter NBA官方统计接口适配器
// 上游按实体返回JSON记录序列；所有响应在这里转成带类型校验的记录后才进入管道
type Adapter struct {
	cfg        *config.ProviderConfig
	httpClient *http.Client
	policy     retry.Policy
	logger     *logrus.Logger
}

// NewAdapter 创建统计数据源适配器
func NewAdapter(cfg *config.ProviderConfig, logger *logrus.Logger) interfaces.StatsProvider {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		policy: retry.Policy{
			MaxAttempts:  cfg.RetryCount,
			BackoffBase:  cfg.BackoffBase,
			RequestDelay: cfg.RequestDelay,
			Jitter:       cfg.Jitter,
		},
		logger: logger,
	}
}

// GetName ========== 实现StatsProvider接口 ==========
func (a *Adapter) GetName() string {
	return "nba-stats"
}

func (a *Adapter) FetchTeams(ctx context.Context) ([]model.StatsTeam, error) {
	var raw []model.StatsTeam
	if err := a.getJSON(ctx, "teams", nil, &raw); err != nil {
		return nil, fmt.Errorf("获取球队列表失败: %w", err)
	}

	teams := make([]model.StatsTeam, 0, len(raw))
	for _, t := range raw {
		if err := t.Validate(); err != nil {
			a.logger.WithError(err).Warn("球队记录校验失败，跳过")
			continue
		}
		teams = append(teams, t)
	}
	return teams, nil
}

func (a *Adapter) FetchTeamGameLog(ctx context.Context, teamID int64, season string) ([]model.StatsTeamGameLog, error) {
	params := url.Values{}
	params.Set("team_id", fmt.Sprintf("%d", teamID))
	params.Set("season", season)

	var raw []model.StatsTeamGameLog
	if err := a.getJSON(ctx, "teamgamelog", params, &raw); err != nil {
		return nil, fmt.Errorf("获取球队%d比赛记录失败: %w", teamID, err)
	}

	logs := make([]model.StatsTeamGameLog, 0, len(raw))
	for _, g := range raw {
		if err := g.Validate(); err != nil {
			a.logger.WithError(err).WithField("team_id", teamID).Warn("比赛记录校验失败，跳过")
			continue
		}
		logs = append(logs, g)
	}
	return logs, nil
}

func (a *Adapter) FetchPlayers(ctx context.Context, season string) ([]model.StatsPlayer, error) {
	params := url.Values{}
	params.Set("season", season)
	params.Set("is_only_current_season", "1")

	var raw []model.StatsPlayer
	if err := a.getJSON(ctx, "commonallplayers", params, &raw); err != nil {
		return nil, fmt.Errorf("获取球员名单失败: %w", err)
	}

	players := make([]model.StatsPlayer, 0, len(raw))
	for _, p := range raw {
		if err := p.Validate(); err != nil {
			a.logger.WithError(err).Warn("球员记录校验失败，跳过")
			continue
		}
		players = append(players, p)
	}
	return players, nil
}

func (a *Adapter) FetchPlayerGameLogs(ctx context.Context, season string) ([]model.StatsPlayerGameLog, error) {
	params := url.Values{}
	params.Set("season", season)
	params.Set("player_or_team", "P")

	var raw []model.StatsPlayerGameLog
	if err := a.getJSON(ctx, "leaguegamelog", params, &raw); err != nil {
		return nil, fmt.Errorf("获取球员比赛记录失败: %w", err)
	}

	logs := make([]model.StatsPlayerGameLog, 0, len(raw))
	for _, g := range raw {
		if err := g.Validate(); err != nil {
			a.logger.WithError(err).Warn("球员比赛记录校验失败，跳过")
			continue
		}
		logs = append(logs, g)
	}
	return logs, nil
}

func (a *Adapter) FetchPlayerSeasonStats(ctx context.Context, season string) ([]model.StatsPlayerSeason, error) {
	params := url.Values{}
	params.Set("season", season)

	var raw []model.StatsPlayerSeason
	if err := a.getJSON(ctx, "leaguedashplayerstats", params, &raw); err != nil {
		return nil, fmt.Errorf("获取球员赛季累计失败: %w", err)
	}

	stats := make([]model.StatsPlayerSeason, 0, len(raw))
	for _, s := range raw {
		if err := s.Validate(); err != nil {
			a.logger.WithError(err).Warn("球员赛季记录校验失败，跳过")
			continue
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// getJSON 带重试策略的GET+解码；瞬时失败（超时/429/5xx）在策略内退避重试
func (a *Adapter) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s/%s", a.cfg.BaseURL, path)
	if len(params) > 0 {
		endpoint = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	return a.policy.Do(ctx, a.logger, path, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := a.httpClient.Do(req)
		if err != nil {
			if isTimeout(err) {
				return fmt.Errorf("%s: %w", path, retry.ErrTimeout)
			}
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w", path, retry.ErrRateLimited)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%s返回%d: %w", path, resp.StatusCode, retry.ErrUpstream)
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("%s返回非预期状态码%d", path, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s响应解析失败: %v", path, err)
		}
		return nil
	})
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
}
