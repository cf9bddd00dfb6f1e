package stickers

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
)

// Assembler produces the distributable archive for a downloaded set.
type Assembler interface {
	// ArchivePath returns where the set's archive lives, whether or not it
	// exists yet.
	ArchivePath(name string) string

	// Assemble packs the member directory into the archive and returns its
	// path.
	Assemble(name, memberDir string) (string, error)
}

type zipAssembler struct {
	dir string
}

// NewZipAssembler archives sets as <dir>/<name>.zip using archive/zip.
func NewZipAssembler(dir string) (Assembler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sticker sets dir: %w", err)
	}

	return &zipAssembler{dir: dir}, nil
}

func (z *zipAssembler) ArchivePath(name string) string {
	return filepath.Join(z.dir, name+".zip")
}

func (z *zipAssembler) Assemble(name, memberDir string) (string, error) {
	archivePath := z.ArchivePath(name)

	out, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	if err = z.writeMembers(out, name, memberDir); err != nil {
		_ = out.Close()
		_ = os.Remove(archivePath)

		return "", err
	}

	if err = out.Close(); err != nil {
		_ = os.Remove(archivePath)

		return "", fmt.Errorf("close archive: %w", err)
	}

	return archivePath, nil
}

func (z *zipAssembler) writeMembers(out *os.File, name, memberDir string) error {
	zw := zip.NewWriter(out)

	// ReadDir sorts by filename, preserving the Sticker_NNN order.
	entries, err := os.ReadDir(memberDir)
	if err != nil {
		return fmt.Errorf("read member dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		payload, readErr := os.ReadFile(filepath.Join(memberDir, e.Name()))
		if readErr != nil {
			return fmt.Errorf("read member %s: %w", e.Name(), readErr)
		}

		w, createErr := zw.Create(name + "/" + e.Name())
		if createErr != nil {
			return fmt.Errorf("add member %s: %w", e.Name(), createErr)
		}

		if _, writeErr := w.Write(payload); writeErr != nil {
			return fmt.Errorf("write member %s: %w", e.Name(), writeErr)
		}
	}

	if err = zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}

	return nil
}
