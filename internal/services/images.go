package services

import (
	"context"
	"io"
	"log/slog"
)

// Placeholder images stand in for uploads that could not be stored.
const (
	PlaceholderUploadFailed = "https://via.placeholder.com/400x300?text=Upload+Failed"
	PlaceholderNoImageHost  = "https://via.placeholder.com/400x300?text=Item+Image"
)

// ImageFile is one uploaded image part. Open is called once per upload.
type ImageFile struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// ImageUploader stores an image at the image host and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, file ImageFile) (string, error)
}

// uploadImages stores files one at a time, in order. A failed upload yields
// the failure placeholder instead of an error; a nil uploader yields the
// unconfigured placeholder for every file.
func uploadImages(ctx context.Context, uploader ImageUploader, files []ImageFile) []string {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		if uploader == nil {
			urls = append(urls, PlaceholderNoImageHost)
			continue
		}
		url, err := uploader.Upload(ctx, f)
		if err != nil {
			slog.Warn("image upload failed, using placeholder", "action", "upload_image", "file", f.Filename, "error", err)
			urls = append(urls, PlaceholderUploadFailed)
			continue
		}
		urls = append(urls, url)
	}
	return urls
}
