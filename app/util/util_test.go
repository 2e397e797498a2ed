package util

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChunkString(t *testing.T) {
	tests := []struct {
		name      string
		s         string
		chunkSize int
		want      []string
	}{
		{
			name:      "Empty",
			s:         "",
			chunkSize: 10,
			want:      []string{},
		},
		{
			name:      "Fits",
			s:         "📊 stats\nline two",
			chunkSize: 256,
			want:      []string{"📊 stats\nline two"},
		},
		{
			name:      "Split by lines",
			s:         "first line\nsecond line",
			chunkSize: 12,
			want:      []string{"first line\n", "second line"},
		},
		{
			name:      "Split long line by words",
			s:         "one two three four",
			chunkSize: 9,
			want:      []string{"one two", "three", "four"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChunkString(tt.s, tt.chunkSize))
		})
	}
}

func TestChunkStringRespectsSize(t *testing.T) {
	text := "Top usuários:\n1. ***1234: 10 conversões 💎\n2. ***9876: 4 conversões\n3. ***5555: 1 conversões"
	for _, chunk := range ChunkString(text, 32) {
		assert.LessOrEqual(t, len(chunk), 32, chunk)
	}
}

func TestEnvHelpers(t *testing.T) {
	os.Setenv("MP3BOT_TEST_INT", "7")
	os.Setenv("MP3BOT_TEST_DURATION", "90s")
	os.Setenv("MP3BOT_TEST_LIST", " 123, ,456 ")
	defer os.Unsetenv("MP3BOT_TEST_INT")
	defer os.Unsetenv("MP3BOT_TEST_DURATION")
	defer os.Unsetenv("MP3BOT_TEST_LIST")

	assert.Equal(t, 7, EnvInt("MP3BOT_TEST_INT", 1))
	assert.Equal(t, 3, EnvInt("MP3BOT_TEST_MISSING_INT", 3))
	assert.Equal(t, 90*time.Second, EnvDuration("MP3BOT_TEST_DURATION", time.Minute))
	assert.Equal(t, time.Minute, EnvDuration("MP3BOT_TEST_MISSING_DURATION", time.Minute))
	assert.Equal(t, []string{"123", "456"}, EnvList("MP3BOT_TEST_LIST"))
	assert.Equal(t, []string{}, EnvList("MP3BOT_TEST_MISSING_LIST"))
	assert.Equal(t, "fallback", Env("MP3BOT_TEST_MISSING", "fallback"))
}
