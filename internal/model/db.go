package model

import (
	"time"

	"gorm.io/datatypes"
)

// Team 球队维度表；一旦创建身份不变，只更新描述字段，不删除
type Team struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	TeamID       int64     `gorm:"column:team_id;uniqueIndex;not null;comment:上游球队ID"`
	Abbreviation string    `gorm:"column:abbreviation;type:varchar(8);not null;comment:球队缩写"`
	FullName     string    `gorm:"column:full_name;type:varchar(64);not null;comment:球队全名"`
	City         string    `gorm:"column:city;type:varchar(64);comment:所在城市"`
	Conference   string    `gorm:"column:conference;type:varchar(16);comment:东西部分区"`
	Division     string    `gorm:"column:division;type:varchar(32);comment:赛区"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:创建时间"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:更新时间"`
}

// Player 球员维度表；team_id 是弱引用（自由球员为空），每次同步整体 upsert
type Player struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	PlayerID  int64     `gorm:"column:player_id;uniqueIndex;not null;comment:上游球员ID"`
	FullName  string    `gorm:"column:full_name;type:varchar(64);not null;comment:球员姓名"`
	TeamID    *int64    `gorm:"column:team_id;comment:当前所属球队ID（可空）"`
	IsActive  bool      `gorm:"column:is_active;type:boolean;default:true;comment:是否现役"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:创建时间"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:更新时间"`
}

// Match 比赛事实表；is_completed=true 后分数不得为空（由完整性审计检查，不由存储层强制）
type Match struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	GameID       string    `gorm:"column:game_id;type:varchar(32);uniqueIndex;not null;comment:上游比赛ID"`
	GameDate     time.Time `gorm:"column:game_date;type:date;not null;index;comment:比赛日期"`
	Season       string    `gorm:"column:season;type:varchar(16);not null;index;comment:赛季标签"`
	HomeTeamID   int64     `gorm:"column:home_team_id;not null;comment:主队ID"`
	AwayTeamID   int64     `gorm:"column:away_team_id;not null;comment:客队ID"`
	WinnerTeamID *int64    `gorm:"column:winner_team_id;comment:获胜球队ID"`
	HomeScore    *int      `gorm:"column:home_score;comment:主队得分"`
	AwayScore    *int      `gorm:"column:away_score;comment:客队得分"`
	IsCompleted  bool      `gorm:"column:is_completed;type:boolean;default:false;comment:是否已完赛"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:创建时间"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:更新时间"`
}

// TeamGameStat 球队单场统计事实表；(game_id, team_id) 唯一，每场比赛两行
type TeamGameStat struct {
	ID              uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	GameID          string    `gorm:"column:game_id;type:varchar(32);uniqueIndex:uk_team_game;not null;comment:上游比赛ID"`
	TeamID          int64     `gorm:"column:team_id;uniqueIndex:uk_team_game;not null;comment:球队ID"`
	Points          *int      `gorm:"column:points;comment:得分"`
	Rebounds        *int      `gorm:"column:rebounds;comment:篮板"`
	Assists         *int      `gorm:"column:assists;comment:助攻"`
	Steals          *int      `gorm:"column:steals;comment:抢断"`
	Blocks          *int      `gorm:"column:blocks;comment:盖帽"`
	Turnovers       *int      `gorm:"column:turnovers;comment:失误"`
	FieldGoalPct    *float64  `gorm:"column:field_goal_pct;type:numeric(6,4);comment:投篮命中率"`
	ThreePointPct   *float64  `gorm:"column:three_point_pct;type:numeric(6,4);comment:三分命中率"`
	FreeThrowPct    *float64  `gorm:"column:free_throw_pct;type:numeric(6,4);comment:罚球命中率"`
	OffensiveRating *float64  `gorm:"column:offensive_rating;type:numeric(8,2);comment:进攻效率（每百回合得分）"`
	DefensiveRating *float64  `gorm:"column:defensive_rating;type:numeric(8,2);comment:防守效率（每百回合失分）"`
	Pace            *float64  `gorm:"column:pace;type:numeric(8,2);comment:比赛节奏"`
	EffectiveFGPct  *float64  `gorm:"column:effective_fg_pct;type:numeric(6,4);comment:有效命中率"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:创建时间"`
	UpdatedAt       time.Time `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:更新时间"`
}

// PlayerGameStat 球员单场统计事实表；(game_id, player_id) 唯一
type PlayerGameStat struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	GameID        string    `gorm:"column:game_id;type:varchar(32);uniqueIndex:uk_player_game;not null;comment:上游比赛ID"`
	PlayerID      int64     `gorm:"column:player_id;uniqueIndex:uk_player_game;not null;comment:球员ID"`
	TeamID        int64     `gorm:"column:team_id;not null;comment:出场时所属球队ID"`
	Minutes       *float64  `gorm:"column:minutes;type:numeric(6,2);comment:出场时间"`
	Points        *int      `gorm:"column:points;comment:得分"`
	Rebounds      *int      `gorm:"column:rebounds;comment:篮板"`
	Assists       *int      `gorm:"column:assists;comment:助攻"`
	Steals        *int      `gorm:"column:steals;comment:抢断"`
	Blocks        *int      `gorm:"column:blocks;comment:盖帽"`
	Turnovers     *int      `gorm:"column:turnovers;comment:失误"`
	FieldGoalPct  *float64  `gorm:"column:field_goal_pct;type:numeric(6,4);comment:投篮命中率"`
	ThreePointPct *float64  `gorm:"column:three_point_pct;type:numeric(6,4);comment:三分命中率"`
	FreeThrowPct  *float64  `gorm:"column:free_throw_pct;type:numeric(6,4);comment:罚球命中率"`
	PlusMinus     *int      `gorm:"column:plus_minus;comment:正负值"`
	FantasyPoints *float64  `gorm:"column:fantasy_points;type:numeric(8,2);comment:范特西得分"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:创建时间"`
	UpdatedAt     time.Time `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:更新时间"`
}

// PlayerSeasonStat 球员赛季累计表；(player_id, season) 唯一，每次同步用当日总量覆盖昨日总量
type PlayerSeasonStat struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	PlayerID      int64     `gorm:"column:player_id;uniqueIndex:uk_player_season;not null;comment:球员ID"`
	Season        string    `gorm:"column:season;type:varchar(16);uniqueIndex:uk_player_season;not null;comment:赛季标签"`
	TeamID        *int64    `gorm:"column:team_id;comment:所属球队ID（可空）"`
	GamesPlayed   int       `gorm:"column:games_played;default:0;comment:出场场次"`
	Wins          int       `gorm:"column:wins;default:0;comment:胜场"`
	Losses        int       `gorm:"column:losses;default:0;comment:负场"`
	WinPct        float64   `gorm:"column:win_pct;type:numeric(6,4);default:0;comment:胜率"`
	Minutes       float64   `gorm:"column:minutes;type:numeric(8,2);default:0;comment:场均出场时间"`
	Points        float64   `gorm:"column:points;type:numeric(8,2);default:0;comment:场均得分"`
	Rebounds      float64   `gorm:"column:rebounds;type:numeric(8,2);default:0;comment:场均篮板"`
	Assists       float64   `gorm:"column:assists;type:numeric(8,2);default:0;comment:场均助攻"`
	FieldGoalPct  float64   `gorm:"column:field_goal_pct;type:numeric(6,4);default:0;comment:投篮命中率"`
	ThreePointPct float64   `gorm:"column:three_point_pct;type:numeric(6,4);default:0;comment:三分命中率"`
	FreeThrowPct  float64   `gorm:"column:free_throw_pct;type:numeric(6,4);default:0;comment:罚球命中率"`
	PlusMinus     float64   `gorm:"column:plus_minus;type:numeric(8,2);default:0;comment:场均正负值"`
	FantasyPoints float64   `gorm:"column:fantasy_points;type:numeric(8,2);default:0;comment:场均范特西得分"`
	UpdatedAt     time.Time `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:更新时间"`
}

// MatchFeature 赛前特征派生表；(game_id, team_id) 唯一
// 所有列只允许由严格早于本场比赛日期的数据计算（时间泄漏不变量）
type MatchFeature struct {
	ID                 uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	GameID             string    `gorm:"column:game_id;type:varchar(32);uniqueIndex:uk_feature_game_team;not null;comment:上游比赛ID"`
	TeamID             int64     `gorm:"column:team_id;uniqueIndex:uk_feature_game_team;not null;comment:球队ID"`
	WinPctLast5        *float64  `gorm:"column:win_pct_last_5;type:numeric(6,3);comment:近5场胜率"`
	WinPctLast10       *float64  `gorm:"column:win_pct_last_10;type:numeric(6,3);comment:近10场胜率"`
	AvgPointDiffLast5  *float64  `gorm:"column:avg_point_diff_last_5;type:numeric(8,2);comment:近5场平均净胜分"`
	AvgPointDiffLast10 *float64  `gorm:"column:avg_point_diff_last_10;type:numeric(8,2);comment:近10场平均净胜分"`
	AvgOffRatingLast5  *float64  `gorm:"column:avg_off_rating_last_5;type:numeric(8,2);comment:近5场平均进攻效率"`
	AvgDefRatingLast5  *float64  `gorm:"column:avg_def_rating_last_5;type:numeric(8,2);comment:近5场平均防守效率"`
	AvgPaceLast5       *float64  `gorm:"column:avg_pace_last_5;type:numeric(8,2);comment:近5场平均节奏"`
	AvgEFGLast5        *float64  `gorm:"column:avg_efg_last_5;type:numeric(6,3);comment:近5场平均有效命中率"`
	IsHome             bool      `gorm:"column:is_home;type:boolean;not null;comment:是否主场"`
	DaysRest           int       `gorm:"column:days_rest;not null;comment:距上一场的休息天数"`
	IsBackToBack       bool      `gorm:"column:is_back_to_back;type:boolean;not null;comment:是否背靠背"`
	CurrentStreak      int       `gorm:"column:current_streak;default:0;comment:赛前连胜（正）/连败（负）场次"`
	H2HWinPct          *float64  `gorm:"column:h2h_win_pct;type:numeric(6,3);comment:对阵该对手的历史胜率"`
	H2HAvgMargin       *float64  `gorm:"column:h2h_avg_margin;type:numeric(8,2);comment:对阵该对手的历史平均分差"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:创建时间"`
	UpdatedAt          time.Time `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:更新时间"`
}

// PipelineAudit 管道审计日志；只追加不修改，状态API读取最近记录
type PipelineAudit struct {
	ID               uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	RunID            string         `gorm:"column:run_id;type:varchar(36);index;comment:单次运行的关联ID"`
	Module           string         `gorm:"column:module;type:varchar(50);index;not null;comment:模块名"`
	Status           string         `gorm:"column:status;type:varchar(20);index;not null;comment:结果：success/failed"`
	RecordsProcessed int            `gorm:"column:records_processed;default:0;comment:处理记录数"`
	RecordsInserted  int            `gorm:"column:records_inserted;default:0;comment:写入记录数"`
	Errors           *string        `gorm:"column:errors;type:text;comment:错误文本"`
	Detail           datatypes.JSON `gorm:"column:detail;type:jsonb;comment:结构化明细"`
	CreatedAt        time.Time      `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP;comment:创建时间"`
}

func (Team) TableName() string             { return "teams" }
func (Player) TableName() string           { return "players" }
func (Match) TableName() string            { return "matches" }
func (TeamGameStat) TableName() string     { return "team_game_stats" }
func (PlayerGameStat) TableName() string   { return "player_game_stats" }
func (PlayerSeasonStat) TableName() string { return "player_season_stats" }
func (MatchFeature) TableName() string     { return "match_features" }
func (PipelineAudit) TableName() string    { return "pipeline_audit" }
