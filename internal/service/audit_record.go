package service

import (
	"context"
	"encoding/json"

	"HoopSync/internal/model"
	"HoopSync/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// 审计状态常量
const (
	auditStatusSuccess = "success"
	auditStatusFailed  = "failed"
)

// recordAudit 写入一条管道审计记录
// 审计写失败只记日志不中断管道：可观测性问题不应让数据流失败
func recordAudit(ctx context.Context, repo repository.AuditRepository, logger *logrus.Logger,
	runID, module, status string, processed, inserted int, errText string, detail map[string]interface{}) {

	rec := &model.PipelineAudit{
		RunID:            runID,
		Module:           module,
		Status:           status,
		RecordsProcessed: processed,
		RecordsInserted:  inserted,
	}
	if errText != "" {
		rec.Errors = &errText
	}
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			logger.WithError(err).WithField("module", module).Warn("审计明细序列化失败")
		} else {
			rec.Detail = datatypes.JSON(b)
		}
	}

	if err := repo.Record(ctx, rec); err != nil {
		logger.WithError(err).WithField("module", module).Error("审计记录写入失败")
	}
}
