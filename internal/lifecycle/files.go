package lifecycle

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// fileAction describes what installFile did with one mapping.
type fileAction string

const (
	actionCopied   fileAction = "copied"
	actionNoop     fileAction = "no-op"
	actionBackedUp fileAction = "backed-up"
)

// installFile places src at target. An existing identical target is a no-op
// (no backup churn); an existing different target is backed up first. Missing
// parent directories are created.
func installFile(src, target string) (fileAction, error) {
	if _, err := os.Stat(target); err == nil {
		same, err := filesIdentical(src, target)
		if err != nil {
			return "", err
		}
		if same {
			return actionNoop, nil
		}
		if err := backupFile(target); err != nil {
			return "", err
		}
		if err := copyFile(src, target); err != nil {
			return "", err
		}
		return actionBackedUp, nil
	}

	if err := copyFile(src, target); err != nil {
		return "", err
	}
	return actionCopied, nil
}

// backupPath is where a pre-existing target is preserved. The plain .backup
// name is used when free; a timestamp suffix avoids clobbering an earlier
// backup.
func backupPath(target string) string {
	plain := target + ".backup"
	if _, err := os.Stat(plain); os.IsNotExist(err) {
		return plain
	}
	return fmt.Sprintf("%s.backup.%d", target, time.Now().Unix())
}

func backupFile(target string) error {
	dest := backupPath(target)
	if err := copyFile(target, dest); err != nil {
		return fmt.Errorf("backup %s: %w", target, err)
	}
	return nil
}

// copyFile copies src to dst preserving the source mode, creating missing
// destination directories.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return wrapFS("open source", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return wrapFS("create directory", filepath.Dir(dst), err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return wrapFS("create target", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return wrapFS("copy", dst, err)
	}

	if stat, err := os.Stat(src); err == nil {
		_ = os.Chmod(dst, stat.Mode())
	}
	return nil
}

// filesIdentical compares two files by sha256.
func filesIdentical(a, b string) (bool, error) {
	ha, err := hashFile(a)
	if err != nil {
		return false, err
	}
	hb, err := hashFile(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ha, hb), nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapFS("open", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// wrapFS classifies filesystem errors into the lifecycle taxonomy.
func wrapFS(op, path string, err error) error {
	if os.IsPermission(err) {
		return fmt.Errorf("%w: %s %s: %v", ErrPermissionDenied, op, path, err)
	}
	return fmt.Errorf("%s %s: %w", op, path, err)
}
