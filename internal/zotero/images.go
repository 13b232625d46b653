package zotero

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var imageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}

var ErrImageNotFound = errors.New("image not found")

// ImageStore publishes image annotations. Zotero keeps each rendered image
// in its own attachment directory under the storage dir; the whole
// directory is copied into the uploads dir and linked from the site.
type ImageStore struct {
	Fs         afero.Fs
	StorageDir string
	UploadsDir string
	Site       string
}

func NewImageStore(storageDir, uploadsDir, site string) *ImageStore {
	return &ImageStore{
		Fs:         afero.NewOsFs(),
		StorageDir: storageDir,
		UploadsDir: uploadsDir,
		Site:       strings.TrimRight(site, "/"),
	}
}

// Find returns the path of the image stored for the attachment.
func (s *ImageStore) Find(attachmentKey string) (string, error) {
	dir := filepath.Join(s.StorageDir, attachmentKey)
	for _, ext := range imageExtensions {
		candidate := filepath.Join(dir, "image."+ext)
		if _, err := s.Fs.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrImageNotFound, attachmentKey)
}

// Publish copies the attachment directory into the uploads dir and returns
// the Markdown image that links to it.
func (s *ImageStore) Publish(attachmentKey string) (string, error) {
	imagePath, err := s.Find(attachmentKey)
	if err != nil {
		return "", err
	}

	src := filepath.Dir(imagePath)
	dst := filepath.Join(s.UploadsDir, attachmentKey)
	if err := s.copyDir(src, dst); err != nil {
		return "", fmt.Errorf("failed to copy image %s: %w", attachmentKey, err)
	}

	url := path.Join(filepath.ToSlash(s.UploadsDir), attachmentKey, filepath.Base(imagePath))
	if s.Site != "" {
		url = s.Site + "/" + strings.TrimPrefix(url, "/")
	}
	return fmt.Sprintf("![%s](%s)", attachmentKey, url), nil
}

// copyDir copies src into dst, overwriting files that already exist.
func (s *ImageStore) copyDir(src, dst string) error {
	return afero.Walk(s.Fs, src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return s.Fs.MkdirAll(target, 0755)
		}
		return s.copyFile(p, target, info.Mode())
	})
}

func (s *ImageStore) copyFile(src, dst string, mode os.FileMode) error {
	in, err := s.Fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := s.Fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
