package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	backupFileExt    = ".bak"
	backupTimeLayout = "20060102-150405"
)

// backupDatabase copies dbPath to <dbPath>.<timestamp>.bak and returns the backup path.
func backupDatabase(dbPath string, now time.Time) (string, error) {
	backupPath := fmt.Sprintf("%s.%s%s", dbPath, now.Format(backupTimeLayout), backupFileExt)
	if err := copyFile(dbPath, backupPath, nil); err != nil {
		return "", fmt.Errorf("failed to create DB backup: %w", err)
	}
	return backupPath, nil
}

// pruneOldBackups keeps the newest max backups of dbPath and removes the rest. Only files
// named like backupDatabase names them are considered.
// The timestamp layout sorts lexically, so name order is age order.
func pruneOldBackups(log *zap.SugaredLogger, dbPath string, max int) {
	if max < 0 {
		max = 0
	}
	dir := filepath.Dir(dbPath)
	prefix := filepath.Base(dbPath) + "."
	files, err := os.ReadDir(dir)
	if err != nil {
		log.Warnf("failed to read backup directory: %v", err)
		return
	}

	var backups []string
	for _, f := range files {
		if isBackupName(f.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, f.Name()))
		}
	}
	if len(backups) <= max {
		return
	}

	sort.Strings(backups)
	for _, file := range backups[:len(backups)-max] {
		if err := os.Remove(file); err != nil {
			log.Warnf("failed to remove old backup %s: %v", file, err)
		} else {
			log.Infof("removed old backup: %s", file)
		}
	}
}

// isBackupName reports whether name is <prefix><timestamp>.bak.
func isBackupName(name, prefix string) bool {
	stamp, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return false
	}
	stamp, ok = strings.CutSuffix(stamp, backupFileExt)
	if !ok {
		return false
	}
	_, err := time.Parse(backupTimeLayout, stamp)
	return err == nil
}
