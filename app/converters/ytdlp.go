package converters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mp3bot/m/v2/app/db/redis"
	"mp3bot/m/v2/app/lib"
	"mp3bot/m/v2/app/models"

	log "github.com/sirupsen/logrus"
)

const (
	ytDlpProvider = "yt-dlp"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ExecOutput returns stdout only; stderr is folded into the error.
func ExecOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return output, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}

// YtDlp resolves media metadata and extracts audio with the yt-dlp binary.
type YtDlp struct {
	Binary   string
	Run      CommandRunner
	Cache    redis.Client
	CacheTTL time.Duration
}

func NewYtDlp(binary string, cache redis.Client, cacheTTL time.Duration) *YtDlp {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YtDlp{Binary: binary, Run: ExecOutput, Cache: cache, CacheTTL: cacheTTL}
}

func (y *YtDlp) commonArgs() []string {
	return []string{
		"--no-check-certificates",
		"--no-warnings",
		"--prefer-free-formats",
		"--add-header", "referer:youtube.com",
		"--add-header", "user-agent:" + userAgent,
	}
}

func (y *YtDlp) FetchInfo(ctx context.Context, url string) (*models.MediaInfo, error) {
	args := append(y.commonArgs(), "--dump-single-json", "--no-playlist", url)
	return y.fetch(ctx, "media-info:"+url, args)
}

// FetchPlaylist lists playlist entries without resolving each video.
func (y *YtDlp) FetchPlaylist(ctx context.Context, url string) (*models.MediaInfo, error) {
	args := append(y.commonArgs(), "--dump-single-json", "--flat-playlist", url)
	info, err := y.fetch(ctx, "playlist-info:"+url, args)
	if err != nil {
		return nil, err
	}
	for i, entry := range info.Entries {
		if entry.ID != "" && !strings.HasPrefix(entry.URL, "http") {
			info.Entries[i].URL = lib.WatchURL(entry.ID)
		}
	}
	return info, nil
}

func (y *YtDlp) fetch(ctx context.Context, cacheKey string, args []string) (*models.MediaInfo, error) {
	run := func() (string, error) {
		output, err := y.Run(ctx, y.Binary, args...)
		if err != nil {
			return "", lib.NewProviderError(ytDlpProvider, "FetchInfo", err)
		}
		return string(output), nil
	}
	if y.Cache != nil {
		run = redis.WrapInCache(y.Cache, cacheKey, y.CacheTTL, run)
	}
	output, err := run()
	if err != nil {
		return nil, err
	}
	var info models.MediaInfo
	if err := json.Unmarshal([]byte(output), &info); err != nil {
		return nil, lib.NewProviderError(ytDlpProvider, "FetchInfo", fmt.Errorf("failed to parse info: %w", err))
	}
	return &info, nil
}

// Extract downloads the audio track of url as mp3 at the given quality, 0 best and 9 worst.
func (y *YtDlp) Extract(ctx context.Context, url string, quality int, outputPath string) error {
	template := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".%(ext)s"
	args := append(y.commonArgs(),
		"--no-playlist",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", strconv.Itoa(quality),
		"-o", template,
		url,
	)
	log.Debugf("extracting %s at quality %d to %s", url, quality, outputPath)
	if _, err := y.Run(ctx, y.Binary, args...); err != nil {
		return lib.NewProviderError(ytDlpProvider, "Extract", err)
	}
	return nil
}
