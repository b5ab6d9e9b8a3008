package export

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/common/units"
)

const (
	DocumentFilename = "medical_image_analysis.docx"
	DocumentMIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	DocumentTitle = "Medical Imaging Analysis"
	ImageHeading  = "Uploaded Image"

	pictureWidthInch = 5.0
)

// BuildDocx lays out the title, the uploaded image at a fixed five inch width
// and the analysis blocks, and returns the packaged document bytes.
func BuildDocx(pngImage []byte, markdown string) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(pngImage))
	if err != nil {
		return nil, fmt.Errorf("failed to read image dimensions: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}

	// pictures and the finished package go through the filesystem
	workDir, err := os.MkdirTemp("", "docx-export-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	imagePath := filepath.Join(workDir, "uploaded_image.png")
	if err := os.WriteFile(imagePath, pngImage, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage image: %w", err)
	}

	document, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	if _, err := document.AddHeading(DocumentTitle, 0); err != nil {
		return nil, fmt.Errorf("failed to add title: %w", err)
	}
	if _, err := document.AddHeading(ImageHeading, 1); err != nil {
		return nil, fmt.Errorf("failed to add image heading: %w", err)
	}
	heightInch := pictureWidthInch * float64(cfg.Height) / float64(cfg.Width)
	if _, err := document.AddPicture(imagePath, units.Inch(pictureWidthInch), units.Inch(heightInch)); err != nil {
		return nil, fmt.Errorf("failed to add image: %w", err)
	}

	for _, b := range ParseMarkdown(markdown) {
		switch b := b.(type) {
		case Heading:
			if _, err := document.AddHeading(b.Text, uint(b.Level)); err != nil {
				return nil, fmt.Errorf("failed to add heading %q: %w", b.Text, err)
			}
		case PageBreak:
			document.AddPageBreak()
		case Paragraph:
			paragraph := document.AddParagraph("")
			for _, run := range b.Runs {
				text := paragraph.AddText(run.Text)
				if run.Bold {
					text.Bold(true)
				}
			}
		}
	}

	outputPath := filepath.Join(workDir, DocumentFilename)
	if err := document.SaveTo(outputPath); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}
