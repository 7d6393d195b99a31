package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tiktok_shop_v1/internal/controller"
	"tiktok_shop_v1/internal/middleware"
)

// Controllers 路由需要的控制器集合
type Controllers struct {
	Auth    *controller.AuthController
	Order   *controller.OrderController
	Product *controller.ProductController
}

// SetupRouter 注册所有路由
func SetupRouter(logger *zap.Logger, ctls *Controllers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// auth 授权流程
		auth := api.Group("/auth")
		{
			// GET /api/auth/authorize
			auth.GET("/authorize", ctls.Auth.Authorize)
			// GET /api/auth/callback
			auth.GET("/callback", ctls.Auth.Callback)
		}

		// accounts 账号及账号下资源
		accounts := api.Group("/accounts")
		{
			accounts.GET("", ctls.Auth.ListAccounts)
			accounts.GET("/:account_id", ctls.Auth.GetAccount)

			// 订单
			orders := accounts.Group("/:account_id/orders")
			{
				orders.GET("", ctls.Order.List)
				orders.POST("/import", ctls.Order.Import)
				orders.POST("/sync", ctls.Order.Sync)
				orders.GET("/:id", ctls.Order.GetByID)
				orders.GET("/:id/reasons", ctls.Order.Reasons)
				orders.POST("/:id/cancel", ctls.Order.Cancel)
				orders.POST("/:id/cancellation", ctls.Order.HandleCancellation)
				orders.GET("/:id/init-info", ctls.Order.InitInfo)
				orders.POST("/:id/fulfill", ctls.Order.Fulfill)
				orders.POST("/:id/split", ctls.Order.Split)
				orders.GET("/:id/bill", ctls.Order.Bill)
			}

			// 商品
			products := accounts.Group("/:account_id/products")
			{
				products.GET("", ctls.Product.List)
				products.POST("", ctls.Product.Create)
				products.POST("/import", ctls.Product.Import)
				products.POST("/sync", ctls.Product.Sync)
				products.GET("/:id", ctls.Product.GetByID)
				products.PUT("/:id", ctls.Product.Update)
				products.DELETE("/:id", ctls.Product.Delete)
				products.POST("/:id/toggle", ctls.Product.Toggle)
				products.POST("/:id/stock", ctls.Product.UpdateStock)
			}

			// 类目与品牌
			categories := accounts.Group("/:account_id/categories")
			{
				categories.GET("", ctls.Product.ListCategories)
				categories.POST("/sync", ctls.Product.SyncCategories)
				categories.GET("/:external_id/attributes", ctls.Product.CategoryAttributes)
			}
			accounts.GET("/:account_id/brands", ctls.Product.ListBrands)
		}
	}

	return r
}
