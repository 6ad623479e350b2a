package repository

import (
	"context"
	"fmt"

	"HoopSync/internal/model"

	"gorm.io/gorm"
)

// AuditRepository 管道审计日志操作接口；记录只追加，创建后不再修改
type AuditRepository interface {
	// Record 追加一条审计记录
	Record(ctx context.Context, record *model.PipelineAudit) error
	// ListRecent 按时间倒序列出最近的审计记录（给状态API用）
	ListRecent(ctx context.Context, limit int) ([]*model.PipelineAudit, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建 AuditRepository 实例
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Record 追加一条审计记录
func (r *auditRepository) Record(ctx context.Context, record *model.PipelineAudit) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("写入审计记录失败: %w", err)
	}
	return nil
}

// ListRecent 按时间倒序列出最近的审计记录
func (r *auditRepository) ListRecent(ctx context.Context, limit int) ([]*model.PipelineAudit, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var records []*model.PipelineAudit
	if err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
