package service

import (
	"context"
	"fmt"

	"HoopSync/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const moduleIntegrityAudit = "integrity_audit"

// ViolationSummary 完整性审计结构化结果
// 数据质量问题是"被检出的状态"而不是异常：只计数上报，不自动修复
type ViolationSummary struct {
	PairingViolations        int `json:"pairing_violations"`         // 已完赛但球队统计行数 != 2 的比赛数
	PlayerCoverageViolations int `json:"player_coverage_violations"` // 已完赛但球员统计行数为 0 的比赛数
	NullScoreViolations      int `json:"null_score_violations"`      // 已完赛但主客得分存在空值的比赛数
}

// Total 违规总数
func (v ViolationSummary) Total() int {
	return v.PairingViolations + v.PlayerCoverageViolations + v.NullScoreViolations
}

// IntegrityAuditService 入库后一致性检查服务；对存储只读，唯一副作用是写审计记录
type IntegrityAuditService struct {
	db        *gorm.DB
	logger    *logrus.Logger
	auditRepo repository.AuditRepository
}

// NewIntegrityAuditService 创建完整性审计服务
func NewIntegrityAuditService(db *gorm.DB, logger *logrus.Logger) *IntegrityAuditService {
	return &IntegrityAuditService{
		db:        db,
		logger:    logger,
		auditRepo: repository.NewAuditRepository(db),
	}
}

// Audit 执行三项只读检查并写入带结构化明细的审计记录
func (s *IntegrityAuditService) Audit(ctx context.Context, season string) (*ViolationSummary, error) {
	runID := uuid.NewString()
	s.logger.WithField("season", season).Info("开始数据完整性审计")

	summary := &ViolationSummary{}

	// 1. 配对检查：每场已完赛比赛必须恰好有两行球队统计
	pairing, err := s.countViolations(ctx, `
		SELECT COUNT(*) FROM (
			SELECT m.game_id
			FROM matches m
			LEFT JOIN team_game_stats tgs ON m.game_id = tgs.game_id
			WHERE m.is_completed = ? AND m.season = ?
			GROUP BY m.game_id
			HAVING COUNT(tgs.id) != 2
		) violating`, season)
	if err != nil {
		return s.failed(ctx, runID, season, fmt.Errorf("配对检查失败: %w", err))
	}
	summary.PairingViolations = pairing

	// 2. 球员覆盖检查：已完赛比赛不允许零球员统计
	coverage, err := s.countViolations(ctx, `
		SELECT COUNT(*) FROM (
			SELECT m.game_id
			FROM matches m
			LEFT JOIN player_game_stats pgs ON m.game_id = pgs.game_id
			WHERE m.is_completed = ? AND m.season = ?
			GROUP BY m.game_id
			HAVING COUNT(pgs.id) = 0
		) violating`, season)
	if err != nil {
		return s.failed(ctx, runID, season, fmt.Errorf("球员覆盖检查失败: %w", err))
	}
	summary.PlayerCoverageViolations = coverage

	// 3. 空分数检查：已完赛比赛的主客得分都不允许为空
	var nullScores int
	if err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM matches
		WHERE is_completed = ? AND season = ?
		  AND (home_score IS NULL OR away_score IS NULL)`, true, season).
		Scan(&nullScores).Error; err != nil {
		return s.failed(ctx, runID, season, fmt.Errorf("空分数检查失败: %w", err))
	}
	summary.NullScoreViolations = nullScores

	if summary.Total() > 0 {
		s.logger.WithFields(logrus.Fields{
			"pairing":         summary.PairingViolations,
			"player_coverage": summary.PlayerCoverageViolations,
			"null_scores":     summary.NullScoreViolations,
		}).Warn("完整性审计发现违规数据")
	} else {
		s.logger.Info("完整性审计通过：未发现违规数据")
	}

	recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIntegrityAudit, auditStatusSuccess,
		summary.Total(), 0, "", map[string]interface{}{
			"season":                     season,
			"pairing_violations":         summary.PairingViolations,
			"player_coverage_violations": summary.PlayerCoverageViolations,
			"null_score_violations":      summary.NullScoreViolations,
		})
	return summary, nil
}

// countViolations 执行违规计数查询
func (s *IntegrityAuditService) countViolations(ctx context.Context, query string, season string) (int, error) {
	var count int
	if err := s.db.WithContext(ctx).Raw(query, true, season).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// failed 审计自身出错（如查询语法错误）属于不可恢复类：写失败审计并向上传播
func (s *IntegrityAuditService) failed(ctx context.Context, runID, season string, err error) (*ViolationSummary, error) {
	recordAudit(ctx, s.auditRepo, s.logger, runID, moduleIntegrityAudit, auditStatusFailed,
		0, 0, err.Error(), map[string]interface{}{"season": season})
	return nil, err
}
