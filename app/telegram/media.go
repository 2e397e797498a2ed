package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mp3bot/m/v2/app/lib"
	"mp3bot/m/v2/app/util"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

const longVideoSeconds = 1800

func (b *Bot) processLink(ctx context.Context, message *telego.Message, subscriberID string, link string) {
	subscriber := b.state.Ledger.IsActive(subscriberID)
	remaining := 0
	if subscriber {
		b.reply(message, premiumDetectedMessage)
	} else {
		remaining = b.state.Usage.RemainingFree(subscriberID)
		if remaining <= 0 {
			_ = b.cfg.DataDogClient.Incr("conversion.quota_exceeded", nil, 1)
			b.reply(message, dailyLimitMessage(b.cfg))
			return
		}
		b.reply(message, freeModeMessage(remaining))
	}

	if lib.IsPlaylistURL(link) {
		limit := b.cfg.PlaylistLimit
		if !subscriber {
			limit = min(b.cfg.FreePlaylistLimit, remaining)
		}
		b.processPlaylist(ctx, message, subscriberID, link, subscriber, limit)
		return
	}
	b.processVideo(ctx, message, subscriberID, link)
}

func (b *Bot) processVideo(ctx context.Context, message *telego.Message, subscriberID string, link string) {
	b.reply(message, convertingMessage)
	_ = b.SendChatAction(&telego.SendChatActionParams{ChatID: util.GetChatID(message), Action: telego.ChatActionUploadVoice})

	info, err := b.media.FetchInfo(ctx, link)
	if err != nil {
		b.reportConversionError(message, err)
		return
	}
	if info.DurationSeconds > longVideoSeconds {
		b.reply(message, longVideoMessage)
	}
	title := lib.CleanTitle(info.Title)
	if err := b.convertAndSend(ctx, message, subscriberID, link, lib.ExtractVideoID(link), title, "🎵 "+title); err != nil {
		b.reportConversionError(message, err)
	}
}

func (b *Bot) processPlaylist(ctx context.Context, message *telego.Message, subscriberID string, link string, subscriber bool, limit int) {
	b.reply(message, playlistNotice(b.cfg, subscriber, limit))

	playlist, err := b.media.FetchPlaylist(ctx, link)
	if err != nil {
		b.reportConversionError(message, err)
		return
	}
	entries := playlist.Entries
	if len(entries) > limit {
		entries = entries[:limit]
	}
	if len(entries) == 0 {
		b.reportConversionError(message, fmt.Errorf("playlist without entries: %s", link))
		return
	}
	b.reply(message, playlistHeader(playlist.Title, len(entries), len(playlist.Entries), subscriber))

	for i, entry := range entries {
		index := i + 1
		title := lib.CleanTitle(entry.Title)
		b.reply(message, playlistItemMessage(index, len(entries), entry.Title))
		err := b.convertAndSend(ctx, message, subscriberID, entry.URL, entry.ID, title, fmt.Sprintf("🎧 %s\n\nTá na mão! 🔥", title))
		if err == nil {
			continue
		}
		log.Errorf("Failed to process playlist item %d (%s): %v", index, entry.ID, err)
		b.state.Usage.RecordError(fmt.Sprintf("Playlist item %d: %s", index, err))
		_ = b.cfg.DataDogClient.Incr("conversion.failed", []string{"source:playlist"}, 1)
		if errors.Is(err, lib.ErrFileTooLarge) {
			b.reply(message, playlistItemTooLargeMessage(b.cfg, entry.Title))
		} else {
			b.reply(message, playlistItemFailedMessage(index, entry.Title))
		}
	}
	b.reply(message, playlistDoneMessage)
}

// convertAndSend produces one MP3 under the size ceiling, uploads it and records the conversion.
func (b *Bot) convertAndSend(ctx context.Context, message *telego.Message, subscriberID string, link string, videoID string, title string, caption string) error {
	if err := os.MkdirAll(b.cfg.TempDir, 0o755); err != nil {
		return fmt.Errorf("convertAndSend: temp dir: %w", err)
	}
	outputPath := filepath.Join(b.cfg.TempDir, fmt.Sprintf("%s_%s.mp3", videoID, uuid.New().String()[:8]))
	path, err := b.encoder.Produce(ctx, link, outputPath, b.cfg.MaxFileSizeBytes)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("convertAndSend: open %s: %w", path, err)
	}
	defer file.Close()
	_, err = b.SendAudio(tu.Audio(util.GetChatID(message), tu.File(file)).WithCaption(caption).WithTitle(title))
	if err != nil {
		return fmt.Errorf("convertAndSend: send audio: %w", err)
	}

	b.state.Usage.RecordConversion(subscriberID, b.state.Ledger.IsActive(subscriberID))
	_ = b.cfg.DataDogClient.Incr("conversion.completed", nil, 1)
	log.Infof("Sent %s to %s", title, lib.MaskSubscriberID(subscriberID))
	return nil
}

// reportConversionError records the failure and sends exactly one categorized reply.
func (b *Bot) reportConversionError(message *telego.Message, err error) {
	log.Errorf("Conversion failed for chat %d: %v", message.Chat.ID, err)
	b.state.Usage.RecordError(err.Error())
	_ = b.cfg.DataDogClient.Incr("conversion.failed", []string{"source:video"}, 1)
	b.reply(message, conversionErrorMessage(err))
}

func conversionErrorMessage(err error) string {
	switch {
	case errors.Is(err, lib.ErrFileTooLarge):
		return tooLargeMessage
	case strings.Contains(strings.ToLower(err.Error()), "copyright"):
		return copyrightMessage
	default:
		return genericErrMessage
	}
}
