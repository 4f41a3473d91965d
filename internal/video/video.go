// Package video encodes the preview MP4 of a chapter with ffmpeg: slide
// stills and caption overlays composited over a blank canvas, narration
// clips delayed to their slide starts.
package video

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ivlev/coursevideo/internal/renderer"
)

// Still is an image file shown on [Start, End) seconds.
type Still struct {
	Path  string
	Start float64
	End   float64
}

// Clip is a narration asset (file or URL) starting at Offset seconds.
type Clip struct {
	Source string
	Offset float64
}

// PreviewJob describes one preview render.
type PreviewJob struct {
	Output   string
	Width    int
	Height   int
	FPS      int
	Duration float64 // seconds
	Slides   []Still
	Captions []Still
	Audio    []Clip
	Encoder  string
	Quality  int
}

type Encoder interface {
	RenderPreview(ctx context.Context, job PreviewJob) error
}

type FFmpegEncoder struct {
	Binary string
}

func (e *FFmpegEncoder) binary() string {
	if e.Binary == "" {
		return "ffmpeg"
	}
	return e.Binary
}

func (e *FFmpegEncoder) RenderPreview(ctx context.Context, job PreviewJob) error {
	args, err := BuildPreviewArgs(job)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, e.binary(), args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg preview error: %v, output: %s", err, tail(string(out), 2048))
	}
	return nil
}

// BuildPreviewArgs lays out the ffmpeg command line. Input 0 is a lavfi
// black canvas, followed by slide stills, caption stills and audio clips.
func BuildPreviewArgs(job PreviewJob) ([]string, error) {
	if job.Output == "" {
		return nil, fmt.Errorf("preview: output path is empty")
	}
	if job.Width <= 0 || job.Height <= 0 || job.FPS <= 0 {
		return nil, fmt.Errorf("preview: invalid canvas %dx%d@%d", job.Width, job.Height, job.FPS)
	}
	if job.Duration <= 0 {
		return nil, fmt.Errorf("preview: empty composition")
	}

	duration := formatSeconds(job.Duration)
	args := []string{
		"-y", "-hide_banner",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:r=%d:d=%s", job.Width, job.Height, job.FPS, duration),
	}

	input := 1
	var layers []renderer.Layer
	for _, group := range [][]Still{job.Slides, job.Captions} {
		for _, s := range group {
			if s.End <= s.Start {
				continue
			}
			args = append(args, "-i", s.Path)
			layers = append(layers, renderer.Layer{Input: input, Start: s.Start, End: s.End})
			input++
		}
	}

	var clips []renderer.AudioClip
	for _, c := range job.Audio {
		args = append(args, "-i", c.Source)
		clips = append(clips, renderer.AudioClip{Input: input, Delay: c.Offset})
		input++
	}

	videoGraph, videoOut := renderer.OverlayChain("[0:v]", layers)
	audioGraph, audioOut := renderer.AudioMix(clips)

	var graph []string
	if videoGraph != "" {
		graph = append(graph, videoGraph)
	}
	if audioGraph != "" {
		graph = append(graph, audioGraph)
	}
	if len(graph) > 0 {
		args = append(args, "-filter_complex", strings.Join(graph, ";"))
	}

	if videoOut == "[0:v]" {
		videoOut = "0:v"
	}
	args = append(args, "-map", videoOut)
	if audioOut != "" {
		args = append(args, "-map", audioOut, "-c:a", "aac", "-b:a", "128k")
	}

	encoder := job.Encoder
	if encoder == "" {
		encoder = "libx264"
	}
	args = append(args, "-t", duration, "-r", strconv.Itoa(job.FPS), "-c:v", encoder, "-pix_fmt", "yuv420p")
	args = append(args, QualityArgs(encoder, job.Quality)...)
	args = append(args, "-movflags", "+faststart", job.Output)

	return args, nil
}

// QualityArgs maps the single quality knob onto each encoder's rate control.
func QualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox не везде понимает -q:v, поэтому битрейт: 75 -> 7.5 Мбит/с
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", strconv.Itoa(quality)}
	default: // libx264
		return []string{"-crf", strconv.Itoa(quality), "-preset", "medium"}
	}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
