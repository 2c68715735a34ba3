package middleware

import (
	"github.com/gin-gonic/gin"

	midsec "relaygate/middleware/security"
)

// RouteOpt selects per-route behavior.
type RouteOpt struct {
	IsAuth bool
}

type Router struct {
	auth gin.HandlerFunc
}

// NewRouter builds the route wrapper with the REST auth middleware baked in.
func NewRouter(opts midsec.Options) *Router {
	return &Router{auth: midsec.Middleware(opts)}
}

func (rt *Router) POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.POST(path, rt.auth, handler)
		return
	}
	r.POST(path, handler)
}

func (rt *Router) GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.GET(path, rt.auth, handler)
		return
	}
	r.GET(path, handler)
}
