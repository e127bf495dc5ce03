package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"
)

// ExposedHeaders lists the result metadata headers browsers may read.
var ExposedHeaders = []string{
	"X-Original-Size",
	"X-Compressed-Size",
	"X-Compression-Ratio",
	"X-Size-Reduction",
	"X-Original-Format",
	"X-Output-Format",
	"X-Original-Dimensions",
	"X-Final-Dimensions",
	"X-Compression-Mode",
	"X-Quality",
	"Content-Disposition",
}

// CORSMiddleware allows any origin and exposes the result metadata headers.
func CORSMiddleware() func(c *ginext.Context) {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Content-Length", "Authorization"},
		ExposeHeaders:   ExposedHeaders,
		MaxAge:          12 * time.Hour,
	})
}
