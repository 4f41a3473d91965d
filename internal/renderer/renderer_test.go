package renderer

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/coursevideo/internal/slide"
	"github.com/ivlev/coursevideo/internal/system"
)

func TestOverlayChain(t *testing.T) {
	graph, out := OverlayChain("[0:v]", []Layer{
		{Input: 1, Start: 0, End: 6},
		{Input: 2, Start: 1.5, End: 2.25},
	})
	assert.Equal(t,
		"[0:v][1:v]overlay=x=0:y=0:enable='gte(t,0.000)*lt(t,6.000)'[v1];"+
			"[v1][2:v]overlay=x=0:y=0:enable='gte(t,1.500)*lt(t,2.250)'[v2]",
		graph)
	assert.Equal(t, "[v2]", out)

	graph, out = OverlayChain("[0:v]", nil)
	assert.Empty(t, graph)
	assert.Equal(t, "[0:v]", out)
}

func TestAudioMix(t *testing.T) {
	graph, out := AudioMix([]AudioClip{{Input: 3, Delay: 0}, {Input: 4, Delay: 7.5}})
	assert.Equal(t,
		"[3:a]adelay=0:all=1[a0];[4:a]adelay=7500:all=1[a1];[a0][a1]amix=inputs=2:duration=longest:normalize=0[aout]",
		graph)
	assert.Equal(t, "[aout]", out)

	graph, out = AudioMix([]AudioClip{{Input: 2, Delay: 1}})
	assert.Equal(t, "[2:a]adelay=1000:all=1[a0]", graph)
	assert.Equal(t, "[a0]", out)

	graph, out = AudioMix(nil)
	assert.Empty(t, graph)
	assert.Empty(t, out)
}

func TestCaptionRender(t *testing.T) {
	r, err := NewCaptionRenderer(640, 360)
	require.NoError(t, err)
	defer r.Close()

	img := r.Render("Go ships with a formatter, a test runner and a build tool.")
	defer system.PutImage(img)

	assert.Equal(t, image.Rect(0, 0, 640, 360), img.Bounds())
	assert.Equal(t, uint8(0), img.RGBAAt(5, 5).A, "frame outside the box stays transparent")

	// box bottom edge sits 30px (60 at 720p) above the frame bottom
	inside := img.RGBAAt(320, 360-30-2)
	assert.Equal(t, uint8(204), inside.A)
	assert.Equal(t, uint8(0), img.RGBAAt(320, 360-30+2).A)

	empty := r.Render("   ")
	defer system.PutImage(empty)
	assert.Equal(t, uint8(0), empty.RGBAAt(320, 300).A)
}

func TestWrap(t *testing.T) {
	r, err := NewCaptionRenderer(1280, 720)
	require.NoError(t, err)
	defer r.Close()

	lines := r.Wrap("one two three four five six seven eight nine ten", 120)
	assert.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.NotEmpty(t, l)
	}
	assert.Equal(t, []string{"supercalifragilistic"}, r.Wrap("supercalifragilistic", 10))
	assert.Nil(t, r.Wrap("", 100))
}

func TestNewCaptionRendererInvalid(t *testing.T) {
	_, err := NewCaptionRenderer(0, 720)
	assert.Error(t, err)
}

func pngDataURI(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestBackdropEmbeddedImage(t *testing.T) {
	r, err := NewCaptionRenderer(320, 180)
	require.NoError(t, err)
	defer r.Close()

	// 1:1 page letterboxed into 16:9
	html := `<body><img src="` + pngDataURI(t, 10, 10, color.RGBA{R: 255, A: 255}) + `"></body>`
	img := r.Backdrop(slide.Slide{HTML: html})

	assert.Equal(t, backdropFill, img.RGBAAt(5, 90), "left bar")
	center := img.RGBAAt(160, 90)
	assert.Greater(t, center.R, uint8(250))
	assert.Less(t, center.G, uint8(5))
}

func TestBackdropTitleCard(t *testing.T) {
	r, err := NewCaptionRenderer(320, 180)
	require.NoError(t, err)
	defer r.Close()

	img := r.Backdrop(slide.Slide{HTML: "<h1>Structs</h1><style>h1{color:red}</style>"})
	assert.Equal(t, backdropFill, img.RGBAAt(0, 0))

	lit := false
	for x := 0; x < 320 && !lit; x++ {
		for y := 0; y < 180; y++ {
			if img.RGBAAt(x, y) != backdropFill {
				lit = true
				break
			}
		}
	}
	assert.True(t, lit, "title text should be drawn")
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Title body", PlainText("<h1>Title</h1>\n<script>var x = 1;</script><p>body</p>"))
	assert.Empty(t, PlainText(""))
}

func TestFit(t *testing.T) {
	assert.Equal(t, image.Rect(70, 0, 250, 180), fit(image.Rect(0, 0, 10, 10), image.Rect(0, 0, 320, 180)))
	assert.Equal(t, image.Rect(0, 0, 320, 180), fit(image.Rect(0, 0, 1280, 720), image.Rect(0, 0, 320, 180)))
}

func TestEmbeddedImageMissing(t *testing.T) {
	_, ok := EmbeddedImage("<p>no image</p>")
	assert.False(t, ok)
	_, ok = EmbeddedImage("data:image/png;base64,AAAA")
	assert.False(t, ok)
}
