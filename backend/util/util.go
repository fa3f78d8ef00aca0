package util

import (
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies srcPath to dstPath, keeping the source's permissions.
// The copy is written beside dstPath and renamed into place, so dstPath
// is never left half written.
func CopyFile(srcPath, dstPath string) error {
	fin, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer fin.Close()
	info, err := fin.Stat()
	if err != nil {
		return err
	}

	fout, err := os.CreateTemp(filepath.Dir(dstPath), filepath.Base(dstPath)+".*")
	if err != nil {
		return err
	}
	tmp := fout.Name()
	if _, err = io.Copy(fout, fin); err == nil {
		err = fout.Chmod(info.Mode().Perm())
	}
	if cerr := fout.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, dstPath)
	}
	if err != nil {
		os.Remove(tmp)
	}
	return err
}
