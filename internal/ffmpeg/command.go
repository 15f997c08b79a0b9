package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// stderrTailLines is how many trailing log lines are kept for error reports.
const stderrTailLines = 100

// maxLogLineBytes bounds a single log line so a misbehaving pipeline cannot
// grow the scanner buffer without limit.
const maxLogLineBytes = 256 * 1024

// scanLogLines splits pipeline output on both \n and \r. ffmpeg separates
// its periodic status updates with bare carriage returns, so a newline-only
// scanner would accumulate the whole stats stream as one ever-growing line.
func scanLogLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// CommandBuilder builds FFmpeg command-line arguments with a fluent API.
type CommandBuilder struct {
	binary     string
	globalArgs []string
	inputArgs  []string
	input      string
	outputArgs []string
	output     string
}

// NewCommandBuilder creates a command builder for the given ffmpeg binary.
func NewCommandBuilder(binary string) *CommandBuilder {
	return &CommandBuilder{binary: binary}
}

// HideBanner suppresses the ffmpeg startup banner.
func (b *CommandBuilder) HideBanner() *CommandBuilder {
	b.globalArgs = append(b.globalArgs, "-hide_banner")
	return b
}

// LogLevel sets the ffmpeg log level (error, warning, info...).
func (b *CommandBuilder) LogLevel(level string) *CommandBuilder {
	b.globalArgs = append(b.globalArgs, "-loglevel", level)
	return b
}

// Overwrite allows overwriting existing output files.
func (b *CommandBuilder) Overwrite() *CommandBuilder {
	b.globalArgs = append(b.globalArgs, "-y")
	return b
}

// StartOffset seeks the input before decoding.
func (b *CommandBuilder) StartOffset(offset time.Duration) *CommandBuilder {
	if offset > 0 {
		b.inputArgs = append(b.inputArgs, "-ss", strconv.FormatFloat(offset.Seconds(), 'f', 3, 64))
	}
	return b
}

// Input sets the input path or URL.
func (b *CommandBuilder) Input(input string) *CommandBuilder {
	b.input = input
	return b
}

// StreamCopy copies all selected streams without re-encoding.
func (b *CommandBuilder) StreamCopy() *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-codec", "copy")
	return b
}

// VideoCodec sets the video encoder.
func (b *CommandBuilder) VideoCodec(enc string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:v", enc)
	return b
}

// AudioCodec sets the audio encoder.
func (b *CommandBuilder) AudioCodec(enc string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-c:a", enc)
	return b
}

// VideoFilter appends a -vf filter chain.
func (b *CommandBuilder) VideoFilter(filter string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-vf", filter)
	return b
}

// VideoBitrate sets target/max video bitrate and decoder buffer size.
func (b *CommandBuilder) VideoBitrate(bitrate, maxRate, bufSize string) *CommandBuilder {
	if bitrate != "" {
		b.outputArgs = append(b.outputArgs, "-b:v", bitrate)
	}
	if maxRate != "" {
		b.outputArgs = append(b.outputArgs, "-maxrate", maxRate)
	}
	if bufSize != "" {
		b.outputArgs = append(b.outputArgs, "-bufsize", bufSize)
	}
	return b
}

// CRF sets the constant rate factor.
func (b *CommandBuilder) CRF(crf int) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-crf", strconv.Itoa(crf))
	return b
}

// Preset sets the encoder speed preset.
func (b *CommandBuilder) Preset(preset string) *CommandBuilder {
	if preset != "" {
		b.outputArgs = append(b.outputArgs, "-preset", preset)
	}
	return b
}

// AudioBitrate sets the audio bitrate.
func (b *CommandBuilder) AudioBitrate(bitrate string) *CommandBuilder {
	if bitrate != "" {
		b.outputArgs = append(b.outputArgs, "-b:a", bitrate)
	}
	return b
}

// AudioChannels sets the output channel count.
func (b *CommandBuilder) AudioChannels(n int) *CommandBuilder {
	if n > 0 {
		b.outputArgs = append(b.outputArgs, "-ac", strconv.Itoa(n))
	}
	return b
}

// MapAll selects all video and audio streams from the input, dropping
// subtitles and data streams that MP4 muxing chokes on.
func (b *CommandBuilder) MapAll() *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-map", "0:v:0", "-map", "0:a:0?")
	return b
}

// Format forces the output container format.
func (b *CommandBuilder) Format(format string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, "-f", format)
	return b
}

// ProgressiveMP4 configures fragmented MP4 output suitable for writing to
// a non-seekable sink (an HTTP response or a file read while written).
func (b *CommandBuilder) ProgressiveMP4() *CommandBuilder {
	b.outputArgs = append(b.outputArgs,
		"-movflags", "frag_keyframe+empty_moov+default_base_moof",
		"-f", "mp4",
	)
	return b
}

// HLSEvent configures an event-type HLS playlist with the given segment
// length. Segments are written next to the playlist.
func (b *CommandBuilder) HLSEvent(segmentSeconds int, segmentPattern string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs,
		"-f", "hls",
		"-hls_time", strconv.Itoa(segmentSeconds),
		"-hls_playlist_type", "event",
		"-hls_segment_filename", segmentPattern,
	)
	return b
}

// ExtraArgs appends raw output arguments.
func (b *CommandBuilder) ExtraArgs(args ...string) *CommandBuilder {
	b.outputArgs = append(b.outputArgs, args...)
	return b
}

// Output sets the output path ("pipe:1" for stdout).
func (b *CommandBuilder) Output(output string) *CommandBuilder {
	b.output = output
	return b
}

// Args returns the assembled argument list.
func (b *CommandBuilder) Args() []string {
	args := make([]string, 0, len(b.globalArgs)+len(b.inputArgs)+len(b.outputArgs)+4)
	args = append(args, b.globalArgs...)
	args = append(args, b.inputArgs...)
	if b.input != "" {
		args = append(args, "-i", b.input)
	}
	args = append(args, b.outputArgs...)
	if b.output != "" {
		args = append(args, b.output)
	}
	return args
}

// Build creates a Command from the assembled arguments.
func (b *CommandBuilder) Build() *Command {
	return &Command{
		binary: b.binary,
		args:   b.Args(),
	}
}

// NewCommand creates a Command from a prebuilt argument list.
func NewCommand(binary string, args []string) *Command {
	return &Command{binary: binary, args: args}
}

// Command is a single FFmpeg invocation.
type Command struct {
	binary string
	args   []string

	mu   sync.Mutex
	cmd  *exec.Cmd
	tail *lineTail
}

// Args returns the command arguments (for logging).
func (c *Command) Args() []string {
	return c.args
}

// String returns the full command line for logging.
func (c *Command) String() string {
	return c.binary + " " + strings.Join(c.args, " ")
}

// StreamToWriter runs the command with stdout piped to w, blocking until
// the process exits or ctx is canceled. Cancellation kills the process;
// this is how client disconnects tear down remux pipelines. Stderr is
// captured in a bounded tail for error reporting.
func (c *Command) StreamToWriter(ctx context.Context, w io.Writer) error {
	cmd := exec.CommandContext(ctx, c.binary, c.args...)
	cmd.Stdout = w

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	c.mu.Lock()
	c.cmd = cmd
	c.tail = newLineTail(stderrTailLines)
	tail := c.tail
	c.mu.Unlock()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 64*1024), maxLogLineBytes)
		scanner.Split(scanLogLines)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				tail.Append(line)
			}
		}
		// Keep draining after a scanner abort so the process never blocks
		// writing stderr.
		_, _ = io.Copy(io.Discard, stderr)
	}()

	waitErr := cmd.Wait()
	wg.Wait()

	if waitErr != nil {
		if ctx.Err() != nil {
			// Torn down on purpose; not a pipeline failure.
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg exited: %w (stderr: %s)", waitErr, tail.Last(5))
	}
	return nil
}

// StderrTail returns up to n trailing stderr lines from the last run.
func (c *Command) StderrTail(n int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tail == nil {
		return ""
	}
	return c.tail.Last(n)
}

// lineTail keeps the last N lines of pipeline output.
type lineTail struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newLineTail(max int) *lineTail {
	return &lineTail{max: max}
}

// Append adds a line, evicting the oldest once the buffer is full.
func (t *lineTail) Append(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

// Last returns the last n lines joined with "; ".
func (t *lineTail) Last(n int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) == 0 {
		return ""
	}
	start := len(t.lines) - n
	if start < 0 {
		start = 0
	}
	return strings.Join(t.lines[start:], "; ")
}
