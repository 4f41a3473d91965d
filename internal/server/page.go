package server

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/player.html
var playerHTML string

var playerTmpl = template.Must(template.New("player").Parse(playerHTML))

type playerPageData struct {
	Title     string
	ChapterID string
	Width     int
	Height    int
	FPS       int
	Frames    int
	LastFrame int
}

// maxStageWidth and maxStageHeight bound the preview stage in the browser.
const (
	maxStageWidth  = 1280
	maxStageHeight = 720
)

func (s *Server) playerPage(c *gin.Context) {
	p, ok := s.plan(c.Param("chapter"))
	if !ok {
		c.String(http.StatusNotFound, "chapter not found")
		return
	}

	w, h := p.Composition.FitSize(maxStageWidth, maxStageHeight)
	data := playerPageData{
		Title:     p.Chapter.Title,
		ChapterID: p.Chapter.ID,
		Width:     w,
		Height:    h,
		FPS:       p.Composition.FPS,
		Frames:    p.Composition.DurationInFrames,
		LastFrame: p.Composition.DurationInFrames - 1,
	}

	var buf bytes.Buffer
	if err := playerTmpl.Execute(&buf, data); err != nil {
		s.logger.Error().Err(err).Msg("player page render failed")
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
