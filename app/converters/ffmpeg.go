package converters

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CommandRunner runs an external binary and returns its stdout, or combined output when asked.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func ExecCombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// FFMPEG re-encodes audio locally with libmp3lame.
type FFMPEG struct {
	Binary string
	Run    CommandRunner
}

func NewFFMPEG(binary string) *FFMPEG {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFMPEG{Binary: binary, Run: ExecCombinedOutput}
}

func (f *FFMPEG) Reencode(ctx context.Context, inputFile string, outputFile string, bitrate string) error {
	output, err := f.Run(ctx, f.Binary, "-y", "-i", inputFile, "-c:a", "libmp3lame", "-b:a", bitrate, outputFile)
	if err != nil {
		return fmt.Errorf("failed to reencode %s to %s at %s: %s\n%s", inputFile, outputFile, bitrate, err, output)
	}
	duration, err := ParseDuration(string(output))
	if err != nil {
		logrus.Debugf("failed to parse reencoded duration of %s: %s", outputFile, err)
		return nil
	}
	logrus.Debugf("reencoded %s at %s, duration %s", outputFile, bitrate, duration)
	return nil
}

func ParseDuration(outputStr string) (duration time.Duration, err error) {
	// size=    3456kB time=00:03:32.05 bitrate= 133.4kbits/s speed=41.2x
	// video:0kB audio:3456kB subtitle:0kB other streams:0kB global headers:0kB muxing overhead: 0.010784%
	arrayOfTimes := strings.Split(outputStr, "time=")
	durationStr := arrayOfTimes[len(arrayOfTimes)-1]
	durationStr = strings.Split(durationStr, " ")[0]
	if durationStr == "" {
		return 0, fmt.Errorf("duration is empty, full output: %s", outputStr)
	}
	parsedTime, err := time.Parse("15:04:05.99", durationStr)
	if err != nil {
		return 0, fmt.Errorf("failed to parse time %s: %s", durationStr, err)
	}
	dayOnly := time.Date(parsedTime.Year(), parsedTime.Month(), parsedTime.Day(), 0, 0, 0, 0, parsedTime.Location())
	return parsedTime.Sub(dayOnly), nil
}
