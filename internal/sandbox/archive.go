package sandbox

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	appErr "codemanager/pkg/errors"
)

// IsArchive reports whether a bundle file is treated as an archive and
// extracted rather than written verbatim.
func IsArchive(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip", ".tar", ".gz", ".tgz":
		return true
	}
	return false
}

// extractArchive unpacks an archive bundle file into the workspace. The
// total uncompressed size across all entries may not exceed maxBytes.
func (w *Workspace) extractArchive(name string, content []byte, maxBytes int64) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip":
		return w.extractZip(content, maxBytes)
	case ".tar":
		return w.extractTar(bytes.NewReader(content), maxBytes)
	case ".tgz":
		return w.extractTarGz(content, maxBytes)
	case ".gz":
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.HasSuffix(strings.ToLower(stem), ".tar") {
			return w.extractTarGz(content, maxBytes)
		}
		return w.extractGz(stem, content, maxBytes)
	}
	return appErr.Newf(appErr.UnsafeFilename, "unsupported archive type: %s", name)
}

func (w *Workspace) extractZip(content []byte, maxBytes int64) error {
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return appErr.Wrapf(err, appErr.WorkspaceFailed, "open zip failed")
	}

	var total int64
	for _, entry := range archive.File {
		if entry.Mode()&os.ModeSymlink != 0 {
			return appErr.Newf(appErr.UnsafeFilename, "symlink entry not allowed: %s", entry.Name)
		}
		if strings.HasSuffix(entry.Name, "/") {
			if err := w.mkdirEntry(entry.Name); err != nil {
				return err
			}
			continue
		}

		total += int64(entry.UncompressedSize64)
		if total > maxBytes {
			return appErr.New(appErr.ArchiveTooLarge)
		}

		reader, err := entry.Open()
		if err != nil {
			return appErr.Wrapf(err, appErr.WorkspaceFailed, "read zip entry failed")
		}
		err = w.writeEntry(entry.Name, io.LimitReader(reader, int64(entry.UncompressedSize64)))
		reader.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Workspace) extractTarGz(content []byte, maxBytes int64) error {
	decompressor, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return appErr.Wrapf(err, appErr.WorkspaceFailed, "open gzip failed")
	}
	defer decompressor.Close()
	return w.extractTar(decompressor, maxBytes)
}

func (w *Workspace) extractTar(r io.Reader, maxBytes int64) error {
	archive := tar.NewReader(r)
	var total int64
	for {
		header, err := archive.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return appErr.Wrapf(err, appErr.WorkspaceFailed, "read tar failed")
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := w.mkdirEntry(header.Name); err != nil {
				return err
			}
		case tar.TypeReg:
			total += header.Size
			if total > maxBytes {
				return appErr.New(appErr.ArchiveTooLarge)
			}
			if err := w.writeEntry(header.Name, io.LimitReader(archive, header.Size)); err != nil {
				return err
			}
		case tar.TypeSymlink, tar.TypeLink:
			return appErr.Newf(appErr.UnsafeFilename, "link entry not allowed: %s", header.Name)
		default:
			// Character devices and the like have no business in a bundle.
			return appErr.Newf(appErr.UnsafeFilename, "unsupported tar entry: %s", header.Name)
		}
	}
}

func (w *Workspace) extractGz(target string, content []byte, maxBytes int64) error {
	decompressor, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return appErr.Wrapf(err, appErr.WorkspaceFailed, "open gzip failed")
	}
	defer decompressor.Close()

	limited := io.LimitReader(decompressor, maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return appErr.Wrapf(err, appErr.WorkspaceFailed, "decompress failed")
	}
	if int64(len(data)) > maxBytes {
		return appErr.New(appErr.ArchiveTooLarge)
	}
	return w.writeEntry(target, bytes.NewReader(data))
}

func (w *Workspace) mkdirEntry(name string) error {
	name = strings.TrimSuffix(name, "/")
	if name == "" {
		return nil
	}
	if err := ValidateFileName(name); err != nil {
		return err
	}
	target, err := w.join(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return appErr.Wrapf(err, appErr.WorkspaceFailed, "create dir entry failed")
	}
	return nil
}

func (w *Workspace) writeEntry(name string, r io.Reader) error {
	if err := ValidateFileName(name); err != nil {
		return err
	}
	target, err := w.join(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return appErr.Wrapf(err, appErr.WorkspaceFailed, "create parent dir failed")
	}
	out, err := os.Create(target)
	if err != nil {
		return appErr.Wrapf(err, appErr.WorkspaceFailed, "create file failed")
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return appErr.Wrapf(err, appErr.WorkspaceFailed, "write entry failed")
	}
	return nil
}
