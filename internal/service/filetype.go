package service

import (
	"path"
	"strings"
)

// InferFileType maps a file name (or link URL) to the display type the
// clients render. Unknown extensions are "Other"; bare URLs with no
// extension are "Link".
func InferFileType(name string) string {
	ext := strings.ToLower(path.Ext(stripQuery(name)))
	switch ext {
	case ".pdf":
		return "PDF"
	case ".doc", ".docx":
		return "Word"
	case ".xls", ".xlsx":
		return "Excel"
	case ".ppt", ".pptx":
		return "PowerPoint"
	case ".csv":
		return "CSV"
	case ".html", ".htm":
		return "HTML"
	case ".png":
		return "PNG"
	case ".jpg", ".jpeg":
		return "JPG"
	case ".gif":
		return "GIF"
	case "":
		if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
			return "Link"
		}
		return "Other"
	default:
		return "Other"
	}
}

func stripQuery(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		return name[:i]
	}
	return name
}
