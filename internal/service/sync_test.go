package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"HoopSync/internal/config"
	"HoopSync/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "hoopsync.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(
		&model.Team{}, &model.Player{}, &model.Match{},
		&model.TeamGameStat{}, &model.PlayerGameStat{}, &model.PlayerSeasonStat{},
		&model.MatchFeature{}, &model.PipelineAudit{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestConfig() *config.Config {
	return &config.Config{
		Sync: config.SyncConfig{Season: "2025-26"},
		Features: config.FeatureConfig{
			MinHistory:        5,
			BackToBackMaxRest: 1,
			OpenerRestDays:    7,
		},
	}
}

// fakeProvider 可编程的内存数据源，按 team_id 返回预置比赛记录
type fakeProvider struct {
	teams       []model.StatsTeam
	logs        map[int64][]model.StatsTeamGameLog
	failTeams   map[int64]error
	players     []model.StatsPlayer
	playerLogs  []model.StatsPlayerGameLog
	seasonStats []model.StatsPlayerSeason

	teamLogCalls int
}

func (f *fakeProvider) GetName() string { return "fake" }

func (f *fakeProvider) FetchTeams(_ context.Context) ([]model.StatsTeam, error) {
	return f.teams, nil
}

func (f *fakeProvider) FetchTeamGameLog(_ context.Context, teamID int64, _ string) ([]model.StatsTeamGameLog, error) {
	f.teamLogCalls++
	if err := f.failTeams[teamID]; err != nil {
		return nil, err
	}
	return f.logs[teamID], nil
}

func (f *fakeProvider) FetchPlayers(_ context.Context, _ string) ([]model.StatsPlayer, error) {
	return f.players, nil
}

func (f *fakeProvider) FetchPlayerGameLogs(_ context.Context, _ string) ([]model.StatsPlayerGameLog, error) {
	return f.playerLogs, nil
}

func (f *fakeProvider) FetchPlayerSeasonStats(_ context.Context, _ string) ([]model.StatsPlayerSeason, error) {
	return f.seasonStats, nil
}

func intPtr(v int) *int { return &v }

func twoTeams() []model.StatsTeam {
	return []model.StatsTeam{
		{TeamID: 1, Abbreviation: "ATL", FullName: "Atlanta Hawks"},
		{TeamID: 2, Abbreviation: "BOS", FullName: "Boston Celtics"},
	}
}

// 同一场比赛从主客两个视角各上报一次
func pairedGame(gameID, date string, homePts, awayPts int) (home, away model.StatsTeamGameLog) {
	homeWL, awayWL := "W", "L"
	if awayPts > homePts {
		homeWL, awayWL = "L", "W"
	}
	home = model.StatsTeamGameLog{
		GameID: gameID, GameDate: date, Matchup: "ATL vs. BOS",
		WinLoss: homeWL, Points: intPtr(homePts),
	}
	away = model.StatsTeamGameLog{
		GameID: gameID, GameDate: date, Matchup: "BOS @ ATL",
		WinLoss: awayWL, Points: intPtr(awayPts),
	}
	return home, away
}

func TestSyncAllMergesBothPerspectives(t *testing.T) {
	db := newTestDB(t)
	home, away := pairedGame("0022600001", "2026-01-05", 100, 90)
	provider := &fakeProvider{
		teams: twoTeams(),
		logs: map[int64][]model.StatsTeamGameLog{
			1: {home},
			2: {away},
		},
	}
	svc := NewSyncService(db, newTestLogger(), newTestConfig(), provider)

	summary, err := svc.SyncAll(context.Background(), "2025-26")
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if summary.Inserted != 1 {
		t.Fatalf("Inserted = %d, want 1", summary.Inserted)
	}

	var match model.Match
	if err := db.Where("game_id = ?", "0022600001").First(&match).Error; err != nil {
		t.Fatalf("find match: %v", err)
	}
	if match.HomeScore == nil || *match.HomeScore != 100 {
		t.Fatalf("HomeScore = %v, want 100", match.HomeScore)
	}
	if match.AwayScore == nil || *match.AwayScore != 90 {
		t.Fatalf("AwayScore = %v, want 90", match.AwayScore)
	}
	if match.WinnerTeamID == nil || *match.WinnerTeamID != 1 {
		t.Fatalf("WinnerTeamID = %v, want 1", match.WinnerTeamID)
	}
	if !match.IsCompleted {
		t.Fatal("IsCompleted = false, want true")
	}

	var statCount int64
	if err := db.Model(&model.TeamGameStat{}).Count(&statCount).Error; err != nil {
		t.Fatalf("count stats: %v", err)
	}
	if statCount != 2 {
		t.Fatalf("team_game_stats rows = %d, want 2", statCount)
	}
}

func TestSyncAllIdempotent(t *testing.T) {
	db := newTestDB(t)
	h1, a1 := pairedGame("0022600001", "2026-01-05", 100, 90)
	h2, a2 := pairedGame("0022600002", "2026-01-07", 95, 104)
	provider := &fakeProvider{
		teams: twoTeams(),
		logs: map[int64][]model.StatsTeamGameLog{
			1: {h1, h2},
			2: {a1, a2},
		},
	}
	svc := NewSyncService(db, newTestLogger(), newTestConfig(), provider)

	for run := 0; run < 2; run++ {
		if _, err := svc.SyncAll(context.Background(), "2025-26"); err != nil {
			t.Fatalf("SyncAll() run %d error = %v", run+1, err)
		}
	}

	counts := map[string]int64{}
	for name, m := range map[string]interface{}{
		"teams":           &model.Team{},
		"matches":         &model.Match{},
		"team_game_stats": &model.TeamGameStat{},
	} {
		var n int64
		if err := db.Model(m).Count(&n).Error; err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		counts[name] = n
	}
	if counts["teams"] != 2 {
		t.Fatalf("teams rows = %d, want 2", counts["teams"])
	}
	if counts["matches"] != 2 {
		t.Fatalf("matches rows = %d, want 2", counts["matches"])
	}
	if counts["team_game_stats"] != 4 {
		t.Fatalf("team_game_stats rows = %d, want 4", counts["team_game_stats"])
	}
}

func TestSyncAllIsolatesTeamFailures(t *testing.T) {
	db := newTestDB(t)
	home, _ := pairedGame("0022600001", "2026-01-05", 100, 90)
	provider := &fakeProvider{
		teams: twoTeams(),
		logs: map[int64][]model.StatsTeamGameLog{
			1: {home},
		},
		failTeams: map[int64]error{2: errors.New("upstream boom")},
	}
	svc := NewSyncService(db, newTestLogger(), newTestConfig(), provider)

	summary, err := svc.SyncAll(context.Background(), "2025-26")
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if len(summary.PerEntityErrors) != 1 {
		t.Fatalf("PerEntityErrors len = %d, want 1", len(summary.PerEntityErrors))
	}
	if _, ok := summary.PerEntityErrors["BOS"]; !ok {
		t.Fatalf("PerEntityErrors missing failed team, got %v", summary.PerEntityErrors)
	}

	// 失败被隔离在单队：另一队的数据照常入库
	var matchCount int64
	if err := db.Model(&model.Match{}).Count(&matchCount).Error; err != nil {
		t.Fatalf("count matches: %v", err)
	}
	if matchCount != 1 {
		t.Fatalf("matches rows = %d, want 1", matchCount)
	}

	var audits []model.PipelineAudit
	if err := db.Where("module = ?", "ingest_games").Find(&audits).Error; err != nil {
		t.Fatalf("find audits: %v", err)
	}
	if len(audits) != 1 || audits[0].Status != "success" {
		t.Fatalf("ingest_games audit = %+v, want one success row", audits)
	}
	if audits[0].Errors == nil {
		t.Fatal("ingest_games audit should carry failed-team error text")
	}
}

func TestSyncAllWatermarkSkipsEarlierGames(t *testing.T) {
	db := newTestDB(t)
	h1, a1 := pairedGame("0022600001", "2026-01-05", 100, 90)
	h2, a2 := pairedGame("0022600002", "2026-01-09", 95, 104)
	provider := &fakeProvider{
		teams: twoTeams(),
		logs: map[int64][]model.StatsTeamGameLog{
			1: {h1, h2},
			2: {a1, a2},
		},
	}
	svc := NewSyncService(db, newTestLogger(), newTestConfig(), provider)
	if _, err := svc.SyncAll(context.Background(), "2025-26"); err != nil {
		t.Fatalf("first SyncAll() error = %v", err)
	}

	// 上游修订历史数据：水位线之前的比赛不应被重新写入；
	// 水位线当日的比赛仍会重拉，以覆盖同日晚些时候的比分修正
	h1mod, a1mod := pairedGame("0022600001", "2026-01-05", 50, 40)
	h2mod, a2mod := pairedGame("0022600002", "2026-01-09", 120, 80)
	provider.logs = map[int64][]model.StatsTeamGameLog{
		1: {h1mod, h2mod},
		2: {a1mod, a2mod},
	}
	if _, err := svc.SyncAll(context.Background(), "2025-26"); err != nil {
		t.Fatalf("second SyncAll() error = %v", err)
	}

	var early, late model.Match
	if err := db.Where("game_id = ?", "0022600001").First(&early).Error; err != nil {
		t.Fatalf("find early match: %v", err)
	}
	if err := db.Where("game_id = ?", "0022600002").First(&late).Error; err != nil {
		t.Fatalf("find late match: %v", err)
	}
	if early.HomeScore == nil || *early.HomeScore != 100 {
		t.Fatalf("early HomeScore = %v, want 100 (unchanged)", early.HomeScore)
	}
	if late.HomeScore == nil || *late.HomeScore != 120 {
		t.Fatalf("late HomeScore = %v, want 120 (refreshed)", late.HomeScore)
	}
}

func TestSyncAllSkipsUnknownOpponent(t *testing.T) {
	db := newTestDB(t)
	home, _ := pairedGame("0022600001", "2026-01-05", 100, 90)
	ghost := model.StatsTeamGameLog{
		GameID: "0022600099", GameDate: "2026-01-06", Matchup: "ATL vs. XXX",
		WinLoss: "W", Points: intPtr(111),
	}
	provider := &fakeProvider{
		teams: twoTeams(),
		logs: map[int64][]model.StatsTeamGameLog{
			1: {home, ghost},
		},
	}
	svc := NewSyncService(db, newTestLogger(), newTestConfig(), provider)

	summary, err := svc.SyncAll(context.Background(), "2025-26")
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if summary.Inserted != 1 {
		t.Fatalf("Inserted = %d, want 1", summary.Inserted)
	}

	var ghostCount int64
	if err := db.Model(&model.Match{}).Where("game_id = ?", "0022600099").Count(&ghostCount).Error; err != nil {
		t.Fatalf("count ghost match: %v", err)
	}
	if ghostCount != 0 {
		t.Fatal("game with unknown opponent must not be persisted")
	}
}

func TestSyncAllIngestsPlayers(t *testing.T) {
	db := newTestDB(t)
	home, away := pairedGame("0022600001", "2026-01-05", 100, 90)
	provider := &fakeProvider{
		teams: twoTeams(),
		logs: map[int64][]model.StatsTeamGameLog{
			1: {home},
			2: {away},
		},
		players: []model.StatsPlayer{
			{PlayerID: 201, FullName: "Trae Young", TeamID: 1},
			{PlayerID: 202, FullName: "Free Agent", TeamID: 0},
		},
		playerLogs: []model.StatsPlayerGameLog{
			{GameID: "0022600001", GameDate: "2026-01-05", PlayerID: 201, TeamID: 1, Points: intPtr(30)},
		},
		seasonStats: []model.StatsPlayerSeason{
			{PlayerID: 201, TeamID: 1, GamesPlayed: 1, Wins: 1, WinPct: 1.0, Points: 30},
		},
	}
	svc := NewSyncService(db, newTestLogger(), newTestConfig(), provider)

	if _, err := svc.SyncAll(context.Background(), "2025-26"); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}

	var freeAgent model.Player
	if err := db.Where("player_id = ?", 202).First(&freeAgent).Error; err != nil {
		t.Fatalf("find free agent: %v", err)
	}
	if freeAgent.TeamID != nil {
		t.Fatalf("free agent TeamID = %v, want nil", freeAgent.TeamID)
	}

	var gameStat model.PlayerGameStat
	if err := db.Where("player_id = ?", 201).First(&gameStat).Error; err != nil {
		t.Fatalf("find player game stat: %v", err)
	}
	if gameStat.Points == nil || *gameStat.Points != 30 {
		t.Fatalf("player Points = %v, want 30", gameStat.Points)
	}

	var seasonCount int64
	if err := db.Model(&model.PlayerSeasonStat{}).Count(&seasonCount).Error; err != nil {
		t.Fatalf("count season stats: %v", err)
	}
	if seasonCount != 1 {
		t.Fatalf("player_season_stats rows = %d, want 1", seasonCount)
	}
}

func seedTeamsForAudit(t *testing.T, db *gorm.DB, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		team := &model.Team{
			TeamID:       id,
			Abbreviation: fmt.Sprintf("T%d", id),
			FullName:     fmt.Sprintf("Team %d", id),
		}
		if err := db.Create(team).Error; err != nil {
			t.Fatalf("seed team %d: %v", id, err)
		}
	}
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse(model.GameDateLayout, value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return d
}
