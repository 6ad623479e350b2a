package model

import "testing"

func TestTeamGameLogMatchupParsing(t *testing.T) {
	cases := []struct {
		matchup  string
		wantHome bool
		wantOpp  string
	}{
		{"LAL vs. BOS", true, "BOS"},
		{"LAL @ BOS", false, "BOS"},
		{"GSW vs. LAC", true, "LAC"},
		{"GSW @ LAC", false, "LAC"},
		{"garbage", false, ""},
	}
	for _, tc := range cases {
		g := StatsTeamGameLog{Matchup: tc.matchup}
		if got := g.IsHomeGame(); got != tc.wantHome {
			t.Errorf("IsHomeGame(%q) = %v, want %v", tc.matchup, got, tc.wantHome)
		}
		if got := g.OpponentAbbrev(); got != tc.wantOpp {
			t.Errorf("OpponentAbbrev(%q) = %q, want %q", tc.matchup, got, tc.wantOpp)
		}
	}
}

func TestTeamGameLogCompleted(t *testing.T) {
	cases := []struct {
		wl   string
		want bool
	}{
		{"W", true},
		{"L", true},
		{"", false},
		{"X", false},
	}
	for _, tc := range cases {
		g := StatsTeamGameLog{WinLoss: tc.wl}
		if got := g.Completed(); got != tc.want {
			t.Errorf("Completed(wl=%q) = %v, want %v", tc.wl, got, tc.want)
		}
	}
}

func TestTeamGameLogValidate(t *testing.T) {
	valid := StatsTeamGameLog{GameID: "001", GameDate: "2026-01-05", Matchup: "ATL vs. BOS"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}

	noID := StatsTeamGameLog{GameDate: "2026-01-05", Matchup: "ATL vs. BOS"}
	if err := noID.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for missing game_id")
	}

	badDate := StatsTeamGameLog{GameID: "001", GameDate: "01/05/2026", Matchup: "ATL vs. BOS"}
	if err := badDate.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for malformed date")
	}
}
