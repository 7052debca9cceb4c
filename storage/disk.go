package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	ReviewImages = "review_images"
	ProfilePics  = "profile_pics"
)

// Disk stores uploaded files below root. Stored files are addressed by a
// slash separated path relative to root, e.g. "review_images/<uuid>.png".
type Disk struct {
	root    string
	baseURL string
}

// Public is the disk served under /storage.
var Public *Disk

func NewDisk(root, baseURL string) *Disk {
	return &Disk{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (d *Disk) Root() string {
	return d.root
}

// Put copies file into namespace under a generated name and returns its path.
func (d *Disk) Put(namespace string, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Join(d.root, namespace), 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	name := path.Join(namespace, uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename)))
	dst, err := os.Create(d.abs(name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(d.abs(name))
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return name, nil
}

// Delete removes a stored file. A file that is already gone is not an error.
func (d *Disk) Delete(name string) error {
	if name == "" {
		return nil
	}
	if err := os.Remove(d.abs(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (d *Disk) Exists(name string) bool {
	if name == "" {
		return false
	}
	_, err := os.Stat(d.abs(name))
	return err == nil
}

// URL is the public address of a stored file.
func (d *Disk) URL(name string) string {
	return d.baseURL + "/storage/" + name
}

func (d *Disk) abs(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(path.Clean("/"+name)))
}

// Uploads tracks files written while a transaction is open so they can be
// removed when it rolls back.
type Uploads struct {
	disk  *Disk
	paths []string
}

func (d *Disk) NewUploads() *Uploads {
	return &Uploads{disk: d}
}

func (u *Uploads) Put(namespace string, file *multipart.FileHeader) (string, error) {
	name, err := u.disk.Put(namespace, file)
	if err != nil {
		return "", err
	}
	u.paths = append(u.paths, name)
	return name, nil
}

func (u *Uploads) Paths() []string {
	return u.paths
}

// Discard deletes every file written through u.
func (u *Uploads) Discard() error {
	var firstErr error
	for _, name := range u.paths {
		if err := u.disk.Delete(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	u.paths = nil
	return firstErr
}
