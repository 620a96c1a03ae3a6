package app

import (
	"fmt"
	"strings"
	"time"

	"x2d/internal/profiling"
)

type frameStats struct {
	FPS          float64
	FrameTime    time.Duration
	FPSLimit     int
	DrawCalls    int64
	Buckets      int64
	Streamed     int64
	Sprites      int
	Static       bool
	RenderTarget bool
	Top          string
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// overlayText formats stats as the on-screen overlay.
func overlayText(s frameStats) string {
	var sb strings.Builder
	limit := "none"
	if s.FPSLimit > 0 {
		limit = fmt.Sprint(s.FPSLimit)
	}
	fmt.Fprintf(&sb, "fps %.0f (%s)  limit %s\n", s.FPS, profiling.FormatMs(s.FrameTime), limit)
	fmt.Fprintf(&sb, "draw calls %d  buckets %d  streamed %d\n", s.DrawCalls, s.Buckets, s.Streamed)
	fmt.Fprintf(&sb, "sprites %d  static %s  rtt %s", s.Sprites, onOff(s.Static), onOff(s.RenderTarget))
	if s.Top != "" {
		fmt.Fprintf(&sb, "\n%s", s.Top)
	}
	return sb.String()
}
