package model

import "strings"

// DefaultPDFProfile is used when the client does not pick a tier.
const DefaultPDFProfile = "screen"

// PDFProfile is a named Ghostscript compression preset.
type PDFProfile struct {
	Key               string `json:"key"`
	Name              string `json:"name"`
	Settings          string `json:"settings"`
	DPIColor          int    `json:"dpi_color"`
	DPIGray           int    `json:"dpi_gray"`
	DPIMono           int    `json:"dpi_mono"`
	JPEGQuality       int    `json:"jpeg_quality"`
	Description       string `json:"description"`
	TargetCompression string `json:"target_compression"`
	UseCase           string `json:"use_case"`
}

var pdfProfiles = []PDFProfile{
	{
		Key:               "screen",
		Name:              "Screen Quality (Maximum Compression)",
		Settings:          "/screen",
		DPIColor:          72,
		DPIGray:           72,
		DPIMono:           300,
		JPEGQuality:       40,
		Description:       "Optimized for web viewing, maximum compression",
		TargetCompression: "80-90%",
		UseCase:           "Web viewing, email sharing",
	},
	{
		Key:               "ebook",
		Name:              "E-book Quality (High Compression)",
		Settings:          "/ebook",
		DPIColor:          150,
		DPIGray:           150,
		DPIMono:           300,
		JPEGQuality:       60,
		Description:       "Balanced quality for e-readers",
		TargetCompression: "60-80%",
		UseCase:           "E-readers, tablets",
	},
	{
		Key:               "printer",
		Name:              "Print Quality (Moderate Compression)",
		Settings:          "/printer",
		DPIColor:          300,
		DPIGray:           300,
		DPIMono:           1200,
		JPEGQuality:       80,
		Description:       "High quality for printing",
		TargetCompression: "30-50%",
		UseCase:           "Home/office printing",
	},
	{
		Key:               "prepress",
		Name:              "Prepress Quality (Light Compression)",
		Settings:          "/prepress",
		DPIColor:          300,
		DPIGray:           300,
		DPIMono:           1200,
		JPEGQuality:       90,
		Description:       "Professional printing quality",
		TargetCompression: "10-30%",
		UseCase:           "Professional printing",
	},
}

// PDFProfiles returns a copy of the tier table in ascending quality order.
func PDFProfiles() []PDFProfile {
	out := make([]PDFProfile, len(pdfProfiles))
	copy(out, pdfProfiles)
	return out
}

// PDFProfileKeys returns the accepted tier keys.
func PDFProfileKeys() []string {
	keys := make([]string, 0, len(pdfProfiles))
	for _, p := range pdfProfiles {
		keys = append(keys, p.Key)
	}
	return keys
}

// LookupPDFProfile finds a tier by key. A leading slash is accepted so
// Ghostscript-style names ("/ebook") resolve too.
func LookupPDFProfile(key string) (PDFProfile, bool) {
	key = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(key)), "/")
	for _, p := range pdfProfiles {
		if p.Key == key {
			return p, true
		}
	}

	return PDFProfile{}, false
}
