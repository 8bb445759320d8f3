package router

import "github.com/gin-gonic/gin"

// Module mounts its routes on the group it is given: /api for
// modules added with Registry.Add, the site root for Registry.AddRoot.
type Module interface {
	Register(rg *gin.RouterGroup)
}
