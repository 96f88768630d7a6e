package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication. They expose liveness and storage health
// only.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
}

// AuthSkipper is a JWTConfig.Skipper for the public health endpoints.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
