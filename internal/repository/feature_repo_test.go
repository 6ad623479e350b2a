package repository

import (
	"context"
	"testing"

	"HoopSync/internal/model"
)

func f64Ptr(v float64) *float64 { return &v }

func TestSaveFeaturesOverwritesOnConflict(t *testing.T) {
	db := setupDB(t)
	repo := NewFeatureRepository(db)
	ctx := context.Background()

	first := &model.MatchFeature{
		GameID:      "0022600001",
		TeamID:      1,
		WinPctLast5: f64Ptr(0.6),
		IsHome:      true,
		DaysRest:    2,
	}
	if err := repo.SaveFeatures(ctx, []*model.MatchFeature{first}); err != nil {
		t.Fatalf("save first: %v", err)
	}

	// 同一 (game_id, team_id) 重算后覆盖，不产生第二行
	revised := &model.MatchFeature{
		GameID:        "0022600001",
		TeamID:        1,
		WinPctLast5:   f64Ptr(0.8),
		IsHome:        true,
		DaysRest:      2,
		CurrentStreak: 3,
	}
	if err := repo.SaveFeatures(ctx, []*model.MatchFeature{revised}); err != nil {
		t.Fatalf("save revised: %v", err)
	}

	features, err := repo.ListByGame(ctx, "0022600001")
	if err != nil {
		t.Fatalf("ListByGame() error = %v", err)
	}
	if len(features) != 1 {
		t.Fatalf("feature rows = %d, want 1", len(features))
	}
	if features[0].WinPctLast5 == nil || *features[0].WinPctLast5 != 0.8 {
		t.Fatalf("WinPctLast5 = %v, want 0.8", features[0].WinPctLast5)
	}
	if features[0].CurrentStreak != 3 {
		t.Fatalf("CurrentStreak = %d, want 3", features[0].CurrentStreak)
	}
}

func TestSaveFeaturesEmptyBatch(t *testing.T) {
	db := setupDB(t)
	repo := NewFeatureRepository(db)

	if err := repo.SaveFeatures(context.Background(), nil); err != nil {
		t.Fatalf("SaveFeatures(nil) error = %v", err)
	}
}

func TestAuditRepositoryListRecent(t *testing.T) {
	db := setupDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	for _, module := range []string{"ingest_teams", "ingest_games", "feature_store"} {
		rec := &model.PipelineAudit{RunID: "run-1", Module: module, Status: "success"}
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatalf("record %s: %v", module, err)
		}
	}

	records, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	// 最新的排最前
	if records[0].Module != "feature_store" {
		t.Fatalf("records[0].Module = %s, want feature_store", records[0].Module)
	}

	// 非法 limit 回落到默认值，不报错
	records, err = repo.ListRecent(ctx, -1)
	if err != nil {
		t.Fatalf("ListRecent(-1) error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
}
