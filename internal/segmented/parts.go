package segmented

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tanq16/segdl/internal/utils"
)

// PartStore names the temporary files of one job. Parts live in a hidden
// directory next to the output so the final rename stays on one filesystem.
type PartStore struct {
	dir  string
	base string
}

func NewPartStore(outputPath string) PartStore {
	return PartStore{
		dir:  filepath.Join(filepath.Dir(outputPath), utils.TempDirName),
		base: filepath.Base(outputPath),
	}
}

func (p PartStore) Dir() string {
	return p.dir
}

func (p PartStore) Path(index int) string {
	return filepath.Join(p.dir, fmt.Sprintf("%s.part%d", p.base, index))
}

// StagingPath is where the assembler writes before the atomic rename.
func (p PartStore) StagingPath() string {
	return filepath.Join(p.dir, p.base+".assembling")
}

func (p PartStore) Prepare() error {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return fmt.Errorf("error creating temp directory: %w", err)
	}
	return nil
}

// Create truncates the part file for index. The directory is recreated if a
// finishing job sharing it removed it in the meantime.
func (p PartStore) Create(index int) (*os.File, error) {
	return p.create(p.Path(index))
}

func (p PartStore) CreateStaging() (*os.File, error) {
	return p.create(p.StagingPath())
}

func (p PartStore) create(path string) (*os.File, error) {
	var err error
	for range 3 {
		if err = p.Prepare(); err != nil {
			return nil, err
		}
		var f *os.File
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if !errors.Is(err, fs.ErrNotExist) {
			return f, err
		}
	}
	return nil, err
}

func (p PartStore) Remove(index int) error {
	return os.Remove(p.Path(index))
}
