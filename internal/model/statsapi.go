package model

import (
	"fmt"
	"strings"
	"time"
)

// GameDateLayout 上游接口返回的比赛日期格式
const GameDateLayout = "2006-01-02"

// StatsTeam 上游 /teams 接口返回的球队记录
type StatsTeam struct {
	TeamID       int64  `json:"team_id"`
	Abbreviation string `json:"abbreviation"`
	FullName     string `json:"full_name"`
	City         string `json:"city"`
	Conference   string `json:"conference"`
	Division     string `json:"division"`
}

// Validate 入库前的边界校验：上游数据进入管道前必须是结构化合法记录
func (t StatsTeam) Validate() error {
	if t.TeamID == 0 {
		return fmt.Errorf("team_id为空")
	}
	if t.Abbreviation == "" || t.FullName == "" {
		return fmt.Errorf("球队%d缺少名称字段", t.TeamID)
	}
	return nil
}

// StatsTeamGameLog 上游 /teamgamelog 返回的单队单场记录
// MATCHUP 形如 "LAL vs. BOS"（主场）或 "LAL @ BOS"（客场）
type StatsTeamGameLog struct {
	GameID          string   `json:"game_id"`
	GameDate        string   `json:"game_date"`
	Matchup         string   `json:"matchup"`
	WinLoss         string   `json:"wl"` // "W"/"L"，未完赛为空
	Points          *int     `json:"pts"`
	Rebounds        *int     `json:"reb"`
	Assists         *int     `json:"ast"`
	Steals          *int     `json:"stl"`
	Blocks          *int     `json:"blk"`
	Turnovers       *int     `json:"tov"`
	FieldGoalPct    *float64 `json:"fg_pct"`
	ThreePointPct   *float64 `json:"fg3_pct"`
	FreeThrowPct    *float64 `json:"ft_pct"`
	OffensiveRating *float64 `json:"off_rating"`
	DefensiveRating *float64 `json:"def_rating"`
	Pace            *float64 `json:"pace"`
	EffectiveFGPct  *float64 `json:"efg_pct"`
}

// Validate 校验必填字段与日期格式
func (g StatsTeamGameLog) Validate() error {
	if g.GameID == "" {
		return fmt.Errorf("game_id为空")
	}
	if _, err := g.Date(); err != nil {
		return err
	}
	if g.Matchup == "" {
		return fmt.Errorf("比赛%s缺少matchup字段", g.GameID)
	}
	return nil
}

// Date 解析比赛日期
func (g StatsTeamGameLog) Date() (time.Time, error) {
	d, err := time.Parse(GameDateLayout, g.GameDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("比赛%s日期解析失败: %w", g.GameID, err)
	}
	return d, nil
}

// IsHomeGame 从 MATCHUP 判断本队是否主场
func (g StatsTeamGameLog) IsHomeGame() bool {
	return strings.Contains(g.Matchup, "vs.")
}

// OpponentAbbrev 从 MATCHUP 提取对手缩写
func (g StatsTeamGameLog) OpponentAbbrev() string {
	if idx := strings.Index(g.Matchup, "vs. "); idx >= 0 {
		return strings.TrimSpace(g.Matchup[idx+len("vs. "):])
	}
	if idx := strings.Index(g.Matchup, "@ "); idx >= 0 {
		return strings.TrimSpace(g.Matchup[idx+len("@ "):])
	}
	return ""
}

// Completed 是否已有胜负结果
func (g StatsTeamGameLog) Completed() bool {
	return g.WinLoss == "W" || g.WinLoss == "L"
}

// StatsPlayer 上游 /commonallplayers 返回的球员记录
// TeamID 为 0 表示自由球员/被裁球员
type StatsPlayer struct {
	PlayerID int64  `json:"player_id"`
	FullName string `json:"full_name"`
	TeamID   int64  `json:"team_id"`
}

// Validate 校验必填字段
func (p StatsPlayer) Validate() error {
	if p.PlayerID == 0 {
		return fmt.Errorf("player_id为空")
	}
	if p.FullName == "" {
		return fmt.Errorf("球员%d缺少姓名", p.PlayerID)
	}
	return nil
}

// StatsPlayerGameLog 上游 /leaguegamelog（球员口径）返回的单人单场记录
type StatsPlayerGameLog struct {
	GameID        string   `json:"game_id"`
	GameDate      string   `json:"game_date"`
	PlayerID      int64    `json:"player_id"`
	TeamID        int64    `json:"team_id"`
	Minutes       *float64 `json:"min"`
	Points        *int     `json:"pts"`
	Rebounds      *int     `json:"reb"`
	Assists       *int     `json:"ast"`
	Steals        *int     `json:"stl"`
	Blocks        *int     `json:"blk"`
	Turnovers     *int     `json:"tov"`
	FieldGoalPct  *float64 `json:"fg_pct"`
	ThreePointPct *float64 `json:"fg3_pct"`
	FreeThrowPct  *float64 `json:"ft_pct"`
	PlusMinus     *int     `json:"plus_minus"`
	FantasyPoints *float64 `json:"fantasy_pts"`
}

// Validate 校验必填字段与日期格式
func (g StatsPlayerGameLog) Validate() error {
	if g.GameID == "" || g.PlayerID == 0 || g.TeamID == 0 {
		return fmt.Errorf("球员比赛记录缺少主键字段: game=%q player=%d", g.GameID, g.PlayerID)
	}
	if _, err := g.Date(); err != nil {
		return err
	}
	return nil
}

// Date 解析比赛日期
func (g StatsPlayerGameLog) Date() (time.Time, error) {
	d, err := time.Parse(GameDateLayout, g.GameDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("球员%d比赛%s日期解析失败: %w", g.PlayerID, g.GameID, err)
	}
	return d, nil
}

// StatsPlayerSeason 上游 /leaguedashplayerstats 返回的球员赛季累计记录
type StatsPlayerSeason struct {
	PlayerID      int64   `json:"player_id"`
	TeamID        int64   `json:"team_id"`
	GamesPlayed   int     `json:"gp"`
	Wins          int     `json:"w"`
	Losses        int     `json:"l"`
	WinPct        float64 `json:"w_pct"`
	Minutes       float64 `json:"min"`
	Points        float64 `json:"pts"`
	Rebounds      float64 `json:"reb"`
	Assists       float64 `json:"ast"`
	FieldGoalPct  float64 `json:"fg_pct"`
	ThreePointPct float64 `json:"fg3_pct"`
	FreeThrowPct  float64 `json:"ft_pct"`
	PlusMinus     float64 `json:"plus_minus"`
	FantasyPoints float64 `json:"fantasy_pts"`
}

// Validate 校验必填字段
func (s StatsPlayerSeason) Validate() error {
	if s.PlayerID == 0 {
		return fmt.Errorf("player_id为空")
	}
	return nil
}
