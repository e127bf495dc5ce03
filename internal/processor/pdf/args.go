package pdf

import (
	"fmt"

	"github.com/aliskhannn/compressor/internal/model"
)

// Args builds the Ghostscript pdfwrite command line for profile. It does
// not include the binary itself.
func Args(profile model.PDFProfile, in, out string) []string {
	return []string{
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS=" + profile.Settings,
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-dSAFER",

		// image downsampling
		"-dDownsampleColorImages=true",
		fmt.Sprintf("-dColorImageResolution=%d", profile.DPIColor),
		"-dColorImageDownsampleType=/Bicubic",
		"-dColorImageDownsampleThreshold=1.5",
		"-dDownsampleGrayImages=true",
		fmt.Sprintf("-dGrayImageResolution=%d", profile.DPIGray),
		"-dGrayImageDownsampleType=/Bicubic",
		"-dDownsampleMonoImages=true",
		fmt.Sprintf("-dMonoImageResolution=%d", profile.DPIMono),
		"-dMonoImageDownsampleType=/Bicubic",

		"-dDetectDuplicateImages=true",
		"-dColorConversionStrategy=/LeaveColorUnchanged",
		"-dConvertCMYKImagesToRGB=false",
		"-dConvertImagesToIndexed=true",
		"-dOptimize=true",

		// fonts
		"-dSubsetFonts=true",
		"-dCompressFonts=true",
		"-dEmbedAllFonts=false",

		// metadata
		"-dDoThumbnails=false",
		"-dCreateJobTicket=false",
		"-dPreserveEPSInfo=false",
		"-dPreserveOPIComments=false",
		"-dPreserveHalftoneInfo=false",
		"-dAutoRotatePages=/None",

		"-dUseFlateCompression=true",
		"-dLZWEncodePages=false",
		"-dFastWebView=true",
		"-dUseCropBox=false",

		fmt.Sprintf("-dJPEGQ=%d", profile.JPEGQuality),
		"-dAutoFilterColorImages=true",
		"-dAutoFilterGrayImages=true",

		"-sOutputFile=" + out,
		in,
	}
}
