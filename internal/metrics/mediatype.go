package metrics

import (
	"path/filepath"
	"strings"
)

// Media types the analyzer understands
const (
	MediaPDF  = "application/pdf"
	MediaXLS  = "application/vnd.ms-excel"
	MediaXLSM = "application/vnd.ms-excel.sheet.macroEnabled.12"
	MediaXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaMP3  = "audio/mpeg"
	MediaWAV  = "audio/wav"
	MediaTIFF = "image/tiff"
	MediaCSV  = "text/csv"
	MediaMP4  = "video/mp4"
)

var mediaTypes = map[string]string{
	".pdf":  MediaPDF,
	".xls":  MediaXLS,
	".xlsm": MediaXLSM,
	".xlsx": MediaXLSX,
	".mp3":  MediaMP3,
	".wav":  MediaWAV,
	".tif":  MediaTIFF,
	".tiff": MediaTIFF,
	".csv":  MediaCSV,
	".mp4":  MediaMP4,
}

// MediaTypeOf maps a file name's extension (case-insensitive) to its media type
func MediaTypeOf(name string) (string, bool) {
	mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(name))]
	return mediaType, ok
}
