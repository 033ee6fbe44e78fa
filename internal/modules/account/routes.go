package account

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the account routes under v1/users. gate guards the
// routes that need a signed-in user.
func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup, gate gin.HandlerFunc) {
	users := v1.Group("/users")
	{
		users.POST("/register", h.Register)
		users.POST("/login", h.Login)
		users.POST("/refresh-token", h.RefreshToken)
	}

	protected := users.Group("", gate)
	{
		protected.POST("/logout", h.Logout)
		protected.POST("/change-password", h.ChangePassword)
		protected.GET("/current-user", h.CurrentUser)
		protected.PATCH("/update-account", h.UpdateAccount)
		protected.PATCH("/avatar", h.UpdateAvatar)
		protected.PATCH("/cover-image", h.UpdateCoverImage)
	}
}
