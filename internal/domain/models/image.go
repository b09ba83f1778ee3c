package models

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/qrave1/TaleRoom/internal/domain/apperr"
)

var AllowedImageExtensions = []string{"png", "jpg", "jpeg"}

// Image - загруженный файл для классификации
type Image struct {
	Filename string
	Data     []byte
}

func (img Image) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(img.Filename), "."))
}

func (img Image) MimeType() string {
	if img.Extension() == "png" {
		return "image/png"
	}

	return "image/jpeg"
}

func (img Image) Validate() error {
	name := strings.TrimSpace(img.Filename)

	switch {
	case name == "":
		return apperr.New(apperr.InvalidImage, "the filename is empty")
	case !strings.Contains(name, ".") || strings.TrimSuffix(name, filepath.Ext(name)) == "":
		return apperr.New(apperr.InvalidImage, "the filename is invalid")
	case !slices.Contains(AllowedImageExtensions, img.Extension()):
		return apperr.New(apperr.InvalidImage, "supported image formats: png, jpg, jpeg")
	case len(img.Data) == 0:
		return apperr.New(apperr.InvalidImage, "no image found in request")
	}

	return nil
}

// Prompt - запрос к внешнему генератору. JSON просит ответ строго в JSON.
type Prompt struct {
	Text   string
	Images []Image
	JSON   bool
}
