package validation

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize is the upload limit for a single image (2048 KB).
const MaxImageSize = 2048 * 1024

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Image checks extension, size and sniffed content of an uploaded image.
func Image(errs Errors, field string, file *multipart.FileHeader) {
	label := strings.ReplaceAll(field, "_", " ")

	if !imageExtensions[strings.ToLower(filepath.Ext(file.Filename))] {
		errs.Add(field, fmt.Sprintf("The %s field must be a file of type: jpg, jpeg, png.", label))
		return
	}
	if file.Size > MaxImageSize {
		errs.Add(field, fmt.Sprintf("The %s field must not be greater than 2048 kilobytes.", label))
		return
	}

	src, err := file.Open()
	if err != nil {
		errs.Add(field, fmt.Sprintf("The %s failed to upload.", label))
		return
	}
	defer src.Close()

	mime, err := mimetype.DetectReader(src)
	if err != nil || !(mime.Is("image/jpeg") || mime.Is("image/png")) {
		errs.Add(field, fmt.Sprintf("The %s field must be an image.", label))
	}
}

// Images validates each file, reporting as "field.0", "field.1", ...
func Images(errs Errors, field string, files []*multipart.FileHeader) {
	for i, file := range files {
		Image(errs, fmt.Sprintf("%s.%d", field, i), file)
	}
}
