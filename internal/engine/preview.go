package engine

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/coursevideo/internal/captions"
	"github.com/ivlev/coursevideo/internal/renderer"
	"github.com/ivlev/coursevideo/internal/system"
	"github.com/ivlev/coursevideo/internal/video"
)

// BuildPreviewJob rasterizes slide backdrops and caption overlays into
// tmpDir and describes the ffmpeg job that composites them.
func BuildPreviewJob(ctx context.Context, plan ChapterPlan, cfg video.PreviewJob, tmpDir string, workers int) (video.PreviewJob, error) {
	job := cfg
	job.Width = plan.Composition.Width
	job.Height = plan.Composition.Height
	job.FPS = plan.Composition.FPS
	job.Duration = float64(plan.Composition.DurationInFrames) / float64(plan.Composition.FPS)

	r, err := renderer.NewCaptionRenderer(job.Width, job.Height)
	if err != nil {
		return job, err
	}
	defer r.Close()

	tl := plan.Timeline
	cues := captions.Cues(tl)
	job.Slides = make([]video.Still, len(tl.Placements))
	job.Captions = make([]video.Still, len(cues))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))

	for i, pl := range tl.Placements {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(tmpDir, fmt.Sprintf("slide_%03d.png", i))
			if err := writePNG(path, r.Backdrop(pl.Slide)); err != nil {
				return err
			}
			job.Slides[i] = video.Still{Path: path, Start: tl.StartSeconds(pl), End: tl.EndSeconds(pl)}
			return nil
		})
	}

	for i, c := range cues {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img := r.Render(c.Text)
			defer system.PutImage(img)

			path := filepath.Join(tmpDir, fmt.Sprintf("caption_%04d.png", i))
			if err := writePNG(path, img); err != nil {
				return err
			}
			job.Captions[i] = video.Still{Path: path, Start: c.Start, End: c.End}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return job, err
	}

	job.Audio = nil
	for _, pl := range tl.Placements {
		if pl.Slide.HasAudio() {
			job.Audio = append(job.Audio, video.Clip{Source: pl.Slide.AudioURL, Offset: tl.StartSeconds(pl)})
		}
	}

	return job, nil
}

func (p *VideoProject) renderPreview(ctx context.Context, plan ChapterPlan, out string) error {
	tmpDir, err := os.MkdirTemp("", "coursevideo_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	encoder := p.Config.Render.VideoEncoder
	if encoder == "" || encoder == "auto" {
		encoder = system.GetBestH264Encoder()
		if encoder != "libx264" {
			fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", encoder)
		}
	}
	quality := p.Config.Render.Quality
	if quality <= 0 {
		quality = system.DefaultQuality(encoder)
	}

	job, err := BuildPreviewJob(ctx, plan, video.PreviewJob{
		Output:  out,
		Encoder: encoder,
		Quality: quality,
	}, tmpDir, p.Config.Render.Workers)
	if err != nil {
		return err
	}

	return p.Encoder.RenderPreview(ctx, job)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
