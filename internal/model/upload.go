package model

import (
	"io"
	"mime/multipart"
)

// Upload is a single file received from a client.
type Upload struct {
	Filename string
	Size     int64 // declared by the client, verified while saving
	Open     func() (io.ReadCloser, error)
}

// UploadFromHeader adapts a multipart file header.
func UploadFromHeader(h *multipart.FileHeader) Upload {
	return Upload{
		Filename: h.Filename,
		Size:     h.Size,
		Open: func() (io.ReadCloser, error) {
			return h.Open()
		},
	}
}
