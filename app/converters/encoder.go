package converters

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"mp3bot/m/v2/app/lib"

	"github.com/DataDog/datadog-go/v5/statsd"
	log "github.com/sirupsen/logrus"
)

type Extractor interface {
	Extract(ctx context.Context, url string, quality int, outputPath string) error
}

type Transcoder interface {
	Reencode(ctx context.Context, inputFile string, outputFile string, bitrate string) error
}

type StepKind int

const (
	StepExtract StepKind = iota
	StepReencode
)

// Step is one rung of the degradation ladder.
type Step struct {
	Kind    StepKind
	Quality int
	Bitrate string
}

func (s Step) String() string {
	if s.Kind == StepExtract {
		return "extract:" + strconv.Itoa(s.Quality)
	}
	return "reencode:" + s.Bitrate
}

const MaxQuality = 9

// DefaultLadder raises remote quality by 3 up to the worst level, then re-encodes locally twice.
var DefaultLadder = []Step{
	{Kind: StepExtract, Quality: 0},
	{Kind: StepExtract, Quality: 3},
	{Kind: StepExtract, Quality: 6},
	{Kind: StepExtract, Quality: MaxQuality},
	{Kind: StepReencode, Bitrate: "48k"},
	{Kind: StepReencode, Bitrate: "32k"},
}

// Encoder produces an mp3 no larger than a byte ceiling.
type Encoder struct {
	extractor  Extractor
	transcoder Transcoder
	steps      []Step
	dd         statsd.ClientInterface
}

func NewEncoder(extractor Extractor, transcoder Transcoder, dd statsd.ClientInterface) *Encoder {
	if dd == nil {
		dd = &statsd.NoOpClient{}
	}
	return &Encoder{
		extractor:  extractor,
		transcoder: transcoder,
		steps:      DefaultLadder,
		dd:         dd,
	}
}

// Produce walks the ladder until the file at outputPath fits under ceiling.
// On failure nothing is left at outputPath.
func (e *Encoder) Produce(ctx context.Context, url string, outputPath string, ceiling int64) (string, error) {
	var size int64
	extracted := false
	for _, step := range e.steps {
		switch step.Kind {
		case StepExtract:
			if extracted {
				safeRemove(outputPath)
			}
			if err := e.extractor.Extract(ctx, url, step.Quality, outputPath); err != nil {
				safeRemove(outputPath)
				e.dd.Incr("encoder.failed", []string{"step:" + step.String()}, 1)
				return "", fmt.Errorf("%w: %s: %w", lib.ErrEncodingFailed, step, err)
			}
			extracted = true
		case StepReencode:
			if !extracted {
				return "", fmt.Errorf("%w: %s: nothing extracted to reencode", lib.ErrEncodingFailed, step)
			}
			if err := e.reencode(ctx, outputPath, step.Bitrate); err != nil {
				safeRemove(outputPath)
				e.dd.Incr("encoder.failed", []string{"step:" + step.String()}, 1)
				return "", fmt.Errorf("%w: %s: %w", lib.ErrEncodingFailed, step, err)
			}
		}

		var err error
		size, err = fileSize(outputPath)
		if err != nil {
			safeRemove(outputPath)
			e.dd.Incr("encoder.failed", []string{"step:" + step.String()}, 1)
			return "", fmt.Errorf("%w: %s: %w", lib.ErrEncodingFailed, step, err)
		}
		if size <= ceiling {
			e.dd.Incr("encoder.produced", []string{"step:" + step.String()}, 1)
			log.Infof("produced %s at %s: %d bytes", outputPath, step, size)
			return outputPath, nil
		}
		log.Infof("output %s at %s is %d bytes, over the %d ceiling", outputPath, step, size, ceiling)
	}

	safeRemove(outputPath)
	e.dd.Incr("encoder.too_large", nil, 1)
	return "", &lib.FileTooLargeError{Size: size, Limit: ceiling}
}

func (e *Encoder) reencode(ctx context.Context, path string, bitrate string) error {
	compressed := path + ".compressed.mp3"
	if err := e.transcoder.Reencode(ctx, path, compressed, bitrate); err != nil {
		safeRemove(compressed)
		return err
	}
	if _, err := fileSize(compressed); err != nil {
		safeRemove(compressed)
		return err
	}
	if err := os.Rename(compressed, path); err != nil {
		safeRemove(compressed)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("missing output %s: %w", path, err)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("empty output %s", path)
	}
	return info.Size(), nil
}

func safeRemove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Errorf("failed to delete %s: %v", path, err)
	}
}
