// Run on start
package onstart

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mp3bot/m/v2/app/state"

	log "github.com/sirupsen/logrus"
)

// Run restores the checkpointed state and removes media left behind by an interrupted run.
func Run(ctx context.Context, st *state.State, tempDir string) {
	if err := st.Load(ctx); err != nil {
		log.Errorf("[onstart] failed to load state, starting with what could be restored: %v", err)
	}
	removed := cleanTempDir(tempDir, time.Now())
	log.Infof("[onstart] finished, removed %d stale temp files", removed)
}

func cleanTempDir(dir string, now time.Time) int {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Errorf("[onstart] failed to create temp dir %s: %v", dir, err)
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Errorf("[onstart] failed to read temp dir %s: %v", dir, err)
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isMediaLeftover(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || now.Sub(info.ModTime()) < time.Hour {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			log.Warnf("[onstart] failed to remove %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed
}

func isMediaLeftover(name string) bool {
	for _, ext := range []string{".mp3", ".part", ".webm", ".m4a", ".ytdl"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
