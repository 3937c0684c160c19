package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// checkFunc inspects a fully written temporary file before it replaces the target.
type checkFunc func(path string) error

// replaceFile writes a new version of target through fill and swaps it into place with a
// rename, so target is either left as it was or fully replaced. When check is non-nil it
// runs on the closed temporary file and a failure leaves target untouched. The temporary
// file lives in target's directory to keep the rename on one filesystem. Removing it after
// a failure is best-effort.
func replaceFile(target string, fill func(tmp *os.File) error, check checkFunc) (err error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err = fill(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if check != nil {
		if err = check(tmpPath); err != nil {
			return err
		}
	}
	if err = os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmpPath, target, err)
	}
	return nil
}

// download fetches url into target.
func download(ctx context.Context, client *http.Client, url, target string, check checkFunc) error {
	return replaceFile(target, func(tmp *os.File) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("download failed: %s", resp.Status)
		}
		if _, err := io.Copy(tmp, resp.Body); err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		return nil
	}, check)
}

// copyFile copies src to dst, keeping the permission bits and modification time of src.
func copyFile(src, dst string, check checkFunc) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	err = replaceFile(dst, func(tmp *os.File) error {
		source, err := os.Open(src)
		if err != nil {
			return err
		}
		defer func(source *os.File) {
			_ = source.Close()
		}(source)

		if _, err := tmp.ReadFrom(source); err != nil {
			return fmt.Errorf("copy %s: %w", src, err)
		}
		if err := tmp.Chmod(info.Mode().Perm()); err != nil {
			return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
		}
		return nil
	}, check)
	if err != nil {
		return err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("set times on %s: %w", dst, err)
	}
	return nil
}
