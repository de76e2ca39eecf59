package admin

import (
	handlershared "github.com/vrl-pickup/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_id")
}

func getAdminUsername(c *gin.Context) string {
	value, ok := c.Get("username")
	if !ok {
		return ""
	}
	if username, ok := value.(string); ok {
		return username
	}
	return ""
}
