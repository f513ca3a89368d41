package router

import "github.com/gin-gonic/gin"

// Module is one mountable slice of the API surface. Each module registers
// its own routes (and any route-level middleware) on the shared group.
type Module interface {
	Register(rg *gin.RouterGroup)
}
