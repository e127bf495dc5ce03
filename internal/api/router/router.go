package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/compressor/internal/api/handlers/image"
	"github.com/aliskhannn/compressor/internal/api/handlers/pdf"
	"github.com/aliskhannn/compressor/internal/api/handlers/system"
	"github.com/aliskhannn/compressor/internal/middleware"
)

// Setup registers every route. maxBodyBytes caps a whole request body.
func Setup(img *image.Handler, doc *pdf.Handler, sys *system.Handler, maxBodyBytes int64) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())
	r.Use(middleware.BodyLimit(maxBodyBytes))

	r.GET("/", sys.Index)
	r.GET("/health", sys.Health)
	r.GET("/profiles", sys.Profiles)
	r.GET("/formats", sys.Formats)
	r.GET("/stats", sys.Stats)

	r.POST("/compress", img.Compress)            // compress image
	r.POST("/convert", img.Convert)              // change format
	r.POST("/heic-convert", img.HEICConvert)     // HEIC/HEIF to JPEG
	r.POST("/resize", img.Resize)                // resize image
	r.POST("/batch-compress", img.BatchCompress) // compress many images

	r.POST("/pdf/compress", doc.Compress)        // compress PDF, keep output
	r.POST("/compress-batch", doc.CompressBatch) // compress many PDFs
	r.GET("/download/:id", doc.Download)
	r.GET("/download-batch/:id", doc.DownloadBatch)

	return r
}
