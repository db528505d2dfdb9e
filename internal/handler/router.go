package handler

import (
	"cafehub/internal/config"
	"cafehub/internal/infrastructure/database"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// SetupRouter 配置路由
func SetupRouter(pool *database.Pool, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(pool, cfg)
	admin := NewAdminHandler(pool, cfg.Database)

	// API 路由组
	api := r.Group("/api/v1")
	{
		api.POST("/purchase", h.Purchase)
		api.GET("/consumption", h.ConsumptionStatement)

		// 账户相关
		account := api.Group("/account")
		{
			account.POST("/register", h.Register)
			account.POST("/update", h.UpdateAccount)
			account.POST("/password", h.ChangePassword)
			account.POST("/recharge", h.Recharge)
		}

		// 商品相关
		goods := api.Group("/goods")
		{
			goods.POST("/add", h.AddGoods)
			goods.POST("/update", h.UpdateGoods)
		}

		// 失物招领
		lost := api.Group("/lost")
		{
			lost.POST("/report", h.ReportLostItem)
			lost.POST("/claim", h.ClaimLostItem)
		}

		// 消息
		message := api.Group("/message")
		{
			message.POST("/send", h.SendMessage)
			message.POST("/send-admin", h.SendToAdmin)
			message.POST("/read", h.MarkMessageRead)
		}
	}

	// 数据库连接管理，需要管理令牌
	db := r.Group("/admin/db", AdminTokenMiddleware(cfg.Server.AdminToken))
	{
		db.POST("/test", admin.TestDatabase)
		db.POST("/switch", admin.SwitchDatabase)
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		if err := pool.DB().WithContext(c.Request.Context()).Exec("SELECT 1").Error; err != nil {
			c.JSON(503, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
