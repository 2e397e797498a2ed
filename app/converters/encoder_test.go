package converters

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mp3bot/m/v2/app/lib"

	"github.com/stretchr/testify/assert"
)

const mb = 1024 * 1024

type fakeExtractor struct {
	sizes     map[int]int64
	failAt    int
	qualities []int
}

func (f *fakeExtractor) Extract(ctx context.Context, url string, quality int, outputPath string) error {
	f.qualities = append(f.qualities, quality)
	if f.failAt == quality {
		return lib.NewProviderError("yt-dlp", "Extract", errors.New("HTTP Error 403"))
	}
	return writeSized(outputPath, f.sizes[quality])
}

type fakeTranscoder struct {
	sizes    map[string]int64
	bitrates []string
	inputs   []string
}

func (f *fakeTranscoder) Reencode(ctx context.Context, inputFile string, outputFile string, bitrate string) error {
	f.bitrates = append(f.bitrates, bitrate)
	f.inputs = append(f.inputs, inputFile)
	if size, ok := f.sizes[bitrate]; ok {
		return writeSized(outputFile, size)
	}
	return errors.New("ffmpeg exited with status 1")
}

func writeSized(path string, size int64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Truncate(size)
}

func outputPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "video.mp3")
}

func TestProduceFirstAttemptFits(t *testing.T) {
	extractor := &fakeExtractor{sizes: map[int]int64{0: 4 * mb}, failAt: -1}
	transcoder := &fakeTranscoder{}
	path := outputPath(t)

	got, err := NewEncoder(extractor, transcoder, nil).Produce(context.Background(), "https://youtu.be/abc", path, 15*mb)

	assert.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, []int{0}, extractor.qualities)
	assert.Empty(t, transcoder.bitrates)
}

func TestProduceEscalatesQualityThenReencodes(t *testing.T) {
	extractor := &fakeExtractor{
		sizes:  map[int]int64{0: 20 * mb, 3: 18 * mb, 6: 17 * mb, 9: 16 * mb},
		failAt: -1,
	}
	transcoder := &fakeTranscoder{sizes: map[string]int64{"48k": 14 * mb}}
	path := outputPath(t)

	got, err := NewEncoder(extractor, transcoder, nil).Produce(context.Background(), "https://youtu.be/abc", path, 15*mb)

	assert.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, []int{0, 3, 6, 9}, extractor.qualities)
	assert.Equal(t, []string{"48k"}, transcoder.bitrates)
	assert.Equal(t, []string{path}, transcoder.inputs)
	info, err := os.Stat(got)
	assert.NoError(t, err)
	assert.Equal(t, int64(14*mb), info.Size())
	_, err = os.Stat(path + ".compressed.mp3")
	assert.True(t, os.IsNotExist(err))
}

func TestProduceFileTooLarge(t *testing.T) {
	extractor := &fakeExtractor{
		sizes:  map[int]int64{0: 40 * mb, 3: 38 * mb, 6: 36 * mb, 9: 34 * mb},
		failAt: -1,
	}
	transcoder := &fakeTranscoder{sizes: map[string]int64{"48k": 20 * mb, "32k": 16 * mb}}
	path := outputPath(t)

	got, err := NewEncoder(extractor, transcoder, nil).Produce(context.Background(), "https://youtu.be/abc", path, 15*mb)

	assert.Empty(t, got)
	assert.True(t, errors.Is(err, lib.ErrFileTooLarge))
	var tooLarge *lib.FileTooLargeError
	assert.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, int64(16*mb), tooLarge.Size)
	assert.Equal(t, int64(15*mb), tooLarge.Limit)
	assert.Equal(t, []int{0, 3, 6, 9}, extractor.qualities)
	assert.Equal(t, []string{"48k", "32k"}, transcoder.bitrates)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestProduceExtractorFailureAborts(t *testing.T) {
	extractor := &fakeExtractor{sizes: map[int]int64{0: 20 * mb}, failAt: 3}
	transcoder := &fakeTranscoder{}
	path := outputPath(t)

	_, err := NewEncoder(extractor, transcoder, nil).Produce(context.Background(), "https://youtu.be/abc", path, 15*mb)

	assert.True(t, errors.Is(err, lib.ErrEncodingFailed))
	assert.True(t, errors.Is(err, lib.ErrProvider))
	assert.False(t, errors.Is(err, lib.ErrFileTooLarge))
	assert.Equal(t, []int{0, 3}, extractor.qualities)
	assert.Empty(t, transcoder.bitrates)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestProduceEmptyOutputIsFailure(t *testing.T) {
	extractor := &fakeExtractor{sizes: map[int]int64{0: 0}, failAt: -1}
	path := outputPath(t)

	_, err := NewEncoder(extractor, &fakeTranscoder{}, nil).Produce(context.Background(), "https://youtu.be/abc", path, 15*mb)

	assert.True(t, errors.Is(err, lib.ErrEncodingFailed))
	assert.Equal(t, []int{0}, extractor.qualities)
}

func TestProduceTranscoderFailureAborts(t *testing.T) {
	extractor := &fakeExtractor{
		sizes:  map[int]int64{0: 20 * mb, 3: 20 * mb, 6: 20 * mb, 9: 20 * mb},
		failAt: -1,
	}
	transcoder := &fakeTranscoder{sizes: map[string]int64{}}
	path := outputPath(t)

	_, err := NewEncoder(extractor, transcoder, nil).Produce(context.Background(), "https://youtu.be/abc", path, 15*mb)

	assert.True(t, errors.Is(err, lib.ErrEncodingFailed))
	assert.Equal(t, []string{"48k"}, transcoder.bitrates)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDefaultLadderIsBounded(t *testing.T) {
	previous := -1
	reencodes := 0
	for _, step := range DefaultLadder {
		if step.Kind == StepExtract {
			assert.Zero(t, reencodes, "extract after reencode")
			assert.Greater(t, step.Quality, previous)
			assert.LessOrEqual(t, step.Quality, MaxQuality)
			previous = step.Quality
			continue
		}
		reencodes++
	}
	assert.Equal(t, MaxQuality, previous)
	assert.Equal(t, 2, reencodes)
}
