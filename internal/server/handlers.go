package server

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/ivlev/coursevideo/internal/bridge"
	"github.com/ivlev/coursevideo/internal/captions"
	"github.com/ivlev/coursevideo/internal/reveal"
	"github.com/ivlev/coursevideo/internal/timing"
)

const version = "0.3.0"

func (s *Server) healthCheck(c *gin.Context) {
	course, _ := s.current()
	resp := gin.H{
		"status":  "ok",
		"version": version,
	}
	if course != nil {
		resp["course"] = course.ID
	}
	c.JSON(http.StatusOK, resp)
}

// ChapterSummary is a chapter entry of GET /api/course.
type ChapterSummary struct {
	ID              string  `json:"chapterId"`
	Title           string  `json:"chapterTitle"`
	Slides          int     `json:"slides"`
	Frames          int     `json:"durationInFrames"`
	DurationSeconds float64 `json:"durationSeconds"`
	PlayerURL       string  `json:"playerUrl"`
}

func (s *Server) getCourse(c *gin.Context) {
	course, plans := s.current()
	if course == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrNoCourse.Error()})
		return
	}

	chapters := make([]ChapterSummary, 0, len(course.Chapters))
	for _, ch := range course.Chapters {
		p := plans[ch.ID]
		chapters = append(chapters, ChapterSummary{
			ID:              ch.ID,
			Title:           ch.Title,
			Slides:          len(ch.Slides),
			Frames:          p.Composition.DurationInFrames,
			DurationSeconds: timing.Seconds(p.Composition.DurationInFrames, p.Composition.FPS),
			PlayerURL:       s.playerURL(ch.ID),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"courseId":   course.ID,
		"courseName": course.Name,
		"layout":     course.Layout,
		"chapters":   chapters,
	})
}

func (s *Server) getTimeline(c *gin.Context) {
	p, ok := s.plan(c.Param("chapter"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
		return
	}
	c.JSON(http.StatusOK, p.Doc())
}

func (s *Server) getCaptions(c *gin.Context) {
	p, ok := s.plan(c.Param("chapter"))
	if !ok {
		c.String(http.StatusNotFound, "chapter not found")
		return
	}

	var buf bytes.Buffer
	if err := captions.WriteVTT(&buf, p.Timeline); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/vtt; charset=utf-8", buf.Bytes())
}

func (s *Server) getQRCode(c *gin.Context) {
	chapter := c.Param("chapter")
	if _, ok := s.plan(chapter); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
		return
	}

	png, err := qrcode.Encode(s.playerURL(chapter), qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) getDocument(c *gin.Context) {
	course, _ := s.current()
	if course == nil {
		c.String(http.StatusServiceUnavailable, ErrNoCourse.Error())
		return
	}
	sl, ok := course.Slide(c.Param("slide"))
	if !ok {
		c.String(http.StatusNotFound, "slide not found")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(bridge.Prepare(sl.HTML)))
}

func (s *Server) getPlan(c *gin.Context) {
	course, _ := s.current()
	if course == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrNoCourse.Error()})
		return
	}
	sl, ok := course.Slide(c.Param("slide"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "slide not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"slideId": sl.ID,
		"plan":    reveal.PlanFor(sl),
	})
}

func (s *Server) playerURL(chapter string) string {
	return strings.TrimRight(s.cfg.Server.PublicURL, "/") + "/player/" + chapter
}
