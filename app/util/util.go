package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mp3bot/m/v2/app/config"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

func Env(name string, defaultValue ...string) string {
	value, ok := os.LookupEnv(name)
	if !ok && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	Assert(ok, "Environment variable "+name+" not found")
	return value
}

func EnvInt(name string, defaultValue int) int {
	value := Env(name, strconv.Itoa(defaultValue))
	parsed, err := strconv.Atoi(value)
	Assert(err == nil, "Environment variable "+name+" is not an integer:", value)
	return parsed
}

func EnvDuration(name string, defaultValue time.Duration) time.Duration {
	value := Env(name, defaultValue.String())
	parsed, err := time.ParseDuration(value)
	Assert(err == nil, "Environment variable "+name+" is not a duration:", value)
	return parsed
}

// EnvList splits a comma separated variable, dropping blanks.
func EnvList(name string) []string {
	list := []string{}
	for _, item := range strings.Split(Env(name, ""), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			list = append(list, item)
		}
	}
	return list
}

func Assert(ok bool, args ...any) {
	if !ok {
		log.Fatal("Assertion failed, killing app!!!", append([]any{"FATAL:"}, args...))
		os.Exit(1)
	}
}

func GetBotLoggerOption(cfg *config.Config) telego.BotOption {
	if cfg.IsProduction() {
		return telego.WithDefaultLogger(false, true)
	}
	return telego.WithDefaultDebugLogger()
}

func GetChatID(m *telego.Message) telego.ChatID {
	return tu.ID(m.Chat.ID)
}

func GetChatIDString(m *telego.Message) string {
	return fmt.Sprintf("%d", m.Chat.ID)
}

// ChunkString splits s into chunks no longer than chunkSize, preferring line and then word boundaries.
func ChunkString(s string, chunkSize int) []string {
	chunks := []string{}
	current := ""
	flush := func() {
		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
	}
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			if len(current)+1 > chunkSize {
				flush()
			} else if current != "" {
				current += "\n"
			}
		}
		if len(current)+len(line) <= chunkSize {
			current += line
			continue
		}
		flush()
		for _, word := range strings.Fields(line) {
			if current != "" && len(current)+len(word)+1 > chunkSize {
				flush()
			}
			if current != "" {
				current += " "
			}
			current += word
		}
	}
	flush()
	return chunks
}
