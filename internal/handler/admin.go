package handler

import (
	"context"
	"log"

	"cafehub/internal/config"
	"cafehub/internal/infrastructure/database"
	"cafehub/pkg/response"

	"github.com/gin-gonic/gin"
)

// PoolManager 可以热切换的连接池
type PoolManager interface {
	Reconnect(ctx context.Context, cfg *config.DatabaseConfig) error
}

// AdminHandler 数据库连接管理
type AdminHandler struct {
	pool PoolManager
	base config.DatabaseConfig
}

func NewAdminHandler(pool PoolManager, base config.DatabaseConfig) *AdminHandler {
	return &AdminHandler{pool: pool, base: base}
}

// DatabaseRequest 新的连接配置，未填写的连接池参数沿用当前配置
type DatabaseRequest struct {
	Driver   string `json:"driver" binding:"required"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	DSN      string `json:"dsn"`
}

func (h *AdminHandler) toConfig(req *DatabaseRequest) *config.DatabaseConfig {
	cfg := h.base
	cfg.Driver = req.Driver
	cfg.Host = req.Host
	cfg.Port = req.Port
	cfg.User = req.User
	cfg.Password = req.Password
	cfg.Database = req.Database
	cfg.DSN = req.DSN
	return &cfg
}

// TestDatabase 测试连接，不影响当前连接池
// POST /admin/db/test
func (h *AdminHandler) TestDatabase(c *gin.Context) {
	var req DatabaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := database.Ping(c.Request.Context(), h.toConfig(&req)); err != nil {
		log.Printf("[Admin] 数据库连接测试失败: driver=%s, err=%v", req.Driver, err)
		response.Error(c, response.CodeBusinessError, "数据库连接失败")
		return
	}
	response.Success(c, gin.H{"message": "连接成功"})
}

// SwitchDatabase 切换到新的数据库，进行中的事务在旧连接池上完成
// POST /admin/db/switch
func (h *AdminHandler) SwitchDatabase(c *gin.Context) {
	var req DatabaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	cfg := h.toConfig(&req)
	if err := h.pool.Reconnect(c.Request.Context(), cfg); err != nil {
		log.Printf("[Admin] 切换数据库失败: driver=%s, err=%v", req.Driver, err)
		response.Error(c, response.CodeBusinessError, "切换数据库失败")
		return
	}
	response.Success(c, gin.H{"message": "已切换", "driver": cfg.Driver})
}
