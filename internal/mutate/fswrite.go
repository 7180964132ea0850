package mutate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dgallion1/docstruct/internal/docmodel"
)

// writeFileAtomic replaces the content of path using a backup-and-replace
// strategy: the previous file is preserved as a backup, the new content is
// written to a temporary file in the same directory, and the temp file is
// renamed over the original only after the write completed. On any failure
// the original file is left untouched.
func writeFileAtomic(path, content string) error {
	backupPath := path + ".bak"
	backupCreated := false

	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, backupPath); err != nil {
			return docmodel.WrapError(docmodel.CodeWriteFailure,
				fmt.Sprintf("create backup of %s", path), err)
		}
		backupCreated = true
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		removeBackup(backupPath, backupCreated)
		return docmodel.WrapError(docmodel.CodeWriteFailure,
			fmt.Sprintf("create temp file for %s", path), err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		removeBackup(backupPath, backupCreated)
		return docmodel.WrapError(docmodel.CodeWriteFailure,
			fmt.Sprintf("write temp file for %s", path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		removeBackup(backupPath, backupCreated)
		return docmodel.WrapError(docmodel.CodeWriteFailure,
			fmt.Sprintf("close temp file for %s", path), err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		restoreBackup(path, backupPath, backupCreated)
		return docmodel.WrapError(docmodel.CodeWriteFailure,
			fmt.Sprintf("replace %s", path), err)
	}

	removeBackup(backupPath, backupCreated)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func removeBackup(backupPath string, created bool) {
	if created {
		os.Remove(backupPath)
	}
}

func restoreBackup(path, backupPath string, created bool) {
	if !created {
		return
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = copyFile(backupPath, path)
	}
	os.Remove(backupPath)
}
