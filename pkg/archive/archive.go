// Package archive bundles album exports into a zip.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// File is one entry of the bundle.
type File struct {
	Name string
	Data []byte
}

// Build writes all files into a single zip archive.
func Build(files []File) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("archive %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("archive %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
