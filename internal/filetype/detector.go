package filetype

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Info contains detected file type information.
type Info struct {
	MIMEType    string
	Extension   string
	IsPDF       bool
	Supported   bool
	Description string
}

// Detector sniffs file types by magic bytes rather than filename; renamed
// files in source trees are common enough to matter.
type Detector struct{}

// New creates a file type detector.
func New() *Detector {
	return &Detector{}
}

// Detect returns the actual type of the file at path.
func (d *Detector) Detect(filePath string) (*Info, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}

	info := &Info{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
	}

	switch {
	case info.MIMEType == "application/pdf":
		info.IsPDF = true
		info.Supported = true
		info.Description = "PDF document"
	case strings.HasPrefix(info.MIMEType, "image/"):
		info.Supported = true
		info.Description = "Image file"
	case strings.HasPrefix(info.MIMEType, "text/"):
		info.Description = "Plain text file"
	default:
		info.Description = fmt.Sprintf("Unsupported file type: %s", info.MIMEType)
	}

	log.Debug().Str("mime", info.MIMEType).Str("file", filePath).Msg("detected file type")
	return info, nil
}

// IsPDF reports whether the file at path is really a PDF.
func (d *Detector) IsPDF(filePath string) bool {
	info, err := d.Detect(filePath)
	if err != nil {
		return false
	}
	return info.IsPDF
}
