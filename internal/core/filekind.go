package core

import (
	"path/filepath"
	"strings"
)

// FileKind is the workflow engine's coarse file category
type FileKind string

const (
	KindDocument FileKind = "document"
	KindImage    FileKind = "image"
	KindAudio    FileKind = "audio"
	KindVideo    FileKind = "video"
	KindCustom   FileKind = "custom"
)

var fileKinds = map[string]FileKind{
	"txt": KindDocument, "md": KindDocument, "markdown": KindDocument,
	"pdf": KindDocument, "html": KindDocument, "xlsx": KindDocument,
	"xls": KindDocument, "docx": KindDocument, "csv": KindDocument,
	"eml": KindDocument, "msg": KindDocument, "pptx": KindDocument,
	"ppt": KindDocument, "xml": KindDocument, "epub": KindDocument,

	"jpg": KindImage, "jpeg": KindImage, "png": KindImage,
	"gif": KindImage, "webp": KindImage, "svg": KindImage,

	"mp3": KindAudio, "m4a": KindAudio, "wav": KindAudio,
	"webm": KindAudio, "amr": KindAudio,

	"mp4": KindVideo, "mov": KindVideo, "mpeg": KindVideo, "mpga": KindVideo,
}

// ClassifyFile maps a file name to its kind by extension, case-insensitively
func ClassifyFile(name string) FileKind {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if kind, ok := fileKinds[ext]; ok {
		return kind
	}
	return KindCustom
}
