package image

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/aliskhannn/compressor/internal/apperr"
)

// params holds the form values shared by the image endpoints after
// parsing and before they are turned into processor options.
type params struct {
	Quality   int    `validate:"gte=10,lte=100"`
	Format    string `validate:"required,oneof=png jpeg jpg webp bmp tiff tif heic heif"`
	Mode      string `validate:"oneof=standard aggressive lossless webp"`
	MaxWidth  int    `validate:"gte=0"`
	MaxHeight int    `validate:"gte=0"`
}

// check runs v on p and turns the first failure into a client message.
func check(v *validator.Validate, p params) error {
	err := v.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("Invalid parameters: %v", err)
	}

	e := verrs[0]
	switch e.Field() {
	case "Format":
		return apperr.Validation("Target format not supported: %v", e.Value())
	case "Mode":
		return apperr.Validation("Compression mode not supported: %v", e.Value())
	case "Quality":
		return apperr.Validation("Quality must be between 10 and 100")
	default:
		return apperr.Validation("Invalid %s", e.Field())
	}
}
