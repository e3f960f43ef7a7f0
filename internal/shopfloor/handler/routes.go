package handler

import (
	"github.com/bitfantasy/nimo-shopfloor/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册 /api/v1 路由；除登录外都需要会话
func RegisterRoutes(v1 *gin.RouterGroup, h *Handlers) {
	// 认证 (无需登录)
	v1.POST("/auth/login", h.Auth.Login)

	authorized := v1.Group("", middleware.Session())
	{
		authorized.GET("/auth/me", h.Auth.Me)

		// 部门队列
		authorized.GET("/queues/:department", h.Queue.List)

		// 订单
		orders := authorized.Group("/orders")
		{
			orders.GET("", h.Order.List)
			orders.POST("", h.Order.Create)
			orders.GET("/:id", h.Order.Get)
			orders.PUT("/:id", h.Order.Update)
			orders.PUT("/:id/department", h.Order.Transition)

			// 状态历史
			orders.GET("/:id/status", h.Status.List)
			orders.POST("/:id/status", h.Status.Create)
		}

		// 部门工作台：解析表格 + 勾选 + 图纸
		workbench := authorized.Group("/workbench/:department/orders/:id")
		{
			workbench.GET("", h.Workbench.Open)
			workbench.POST("/save", h.Workbench.Save)
			workbench.POST("/send", h.Workbench.Send)
			workbench.GET("/export", h.Workbench.Export)
			workbench.GET("/drawing/layout", h.Workbench.DrawingLayout)
			workbench.GET("/drawing/pages/:page", h.Workbench.DrawingPage)
		}

		// 基础数据
		customers := authorized.Group("/customers")
		{
			customers.GET("", h.MasterData.ListCustomers)
			customers.POST("", h.MasterData.CreateCustomer)
			customers.GET("/:id", h.MasterData.GetCustomer)
			customers.PUT("/:id", h.MasterData.UpdateCustomer)
			customers.DELETE("/:id", h.MasterData.DeleteCustomer)
		}
		products := authorized.Group("/products")
		{
			products.GET("", h.MasterData.ListProducts)
			products.POST("", h.MasterData.CreateProduct)
			products.GET("/:id", h.MasterData.GetProduct)
			products.PUT("/:id", h.MasterData.UpdateProduct)
			products.DELETE("/:id", h.MasterData.DeleteProduct)
		}
		machines := authorized.Group("/machines")
		{
			machines.GET("", h.MasterData.ListMachines)
			machines.POST("", h.MasterData.CreateMachine)
			machines.GET("/:id", h.MasterData.GetMachine)
			machines.PUT("/:id", h.MasterData.UpdateMachine)
			machines.DELETE("/:id", h.MasterData.DeleteMachine)
		}
	}
}
