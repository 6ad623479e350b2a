package api

import (
	"errors"
	"net/http"
	"strconv"

	"HoopSync/internal/config"
	"HoopSync/internal/interfaces"
	"HoopSync/internal/repository"
	"HoopSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PipelineHandler 管道触发与状态查询接口
type PipelineHandler struct {
	syncService    *service.SyncService
	featureService *service.FeatureService
	auditService   *service.IntegrityAuditService
	auditRepo      repository.AuditRepository
	cfg            *config.Config
	logger         *logrus.Logger
}

// NewPipelineHandler 创建管道接口处理器
func NewPipelineHandler(db *gorm.DB, logger *logrus.Logger, cfg *config.Config, provider interfaces.StatsProvider) *PipelineHandler {
	return &PipelineHandler{
		syncService:    service.NewSyncService(db, logger, cfg, provider),
		featureService: service.NewFeatureService(db, logger, cfg),
		auditService:   service.NewIntegrityAuditService(db, logger),
		auditRepo:      repository.NewAuditRepository(db),
		cfg:            cfg,
		logger:         logger,
	}
}

// season 赛季参数，缺省用配置中的当前赛季
func (h *PipelineHandler) season(c *gin.Context) string {
	return c.DefaultQuery("season", h.cfg.Sync.Season)
}

// RunSync 触发一次完整同步
// @Router /sync/run [post]
func (h *PipelineHandler) RunSync(c *gin.Context) {
	season := h.season(c)
	summary, err := h.syncService.SyncAll(c.Request.Context(), season)
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Errorf("同步%s失败: %v", season, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"season":            season,
		"processed":         summary.Processed,
		"inserted":          summary.Inserted,
		"per_entity_errors": summary.PerEntityErrors,
	})
}

// RunFeatures 触发一次特征计算
// @Router /features/run [post]
func (h *PipelineHandler) RunFeatures(c *gin.Context) {
	season := h.season(c)
	rows, err := h.featureService.ComputeFeatures(c.Request.Context(), season)
	if err != nil {
		h.logger.Errorf("特征计算%s失败: %v", season, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"season": season, "rows_written": rows})
}

// RunAudit 触发一次完整性审计
// @Router /audit/run [post]
func (h *PipelineHandler) RunAudit(c *gin.Context) {
	season := h.season(c)
	summary, err := h.auditService.Audit(c.Request.Context(), season)
	if err != nil {
		h.logger.Errorf("完整性审计%s失败: %v", season, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"season": season, "violations": summary})
}

// Status 查询最近的审计记录（给运维页面/下游健康信号用）
// @Router /api/status [get]
func (h *PipelineHandler) Status(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := h.auditRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}
