package theme

import (
	"math"
	"strconv"
	"strings"
)

// ContrastTextColor 可选的两种默认文字颜色。
const (
	DarkText  = "#1A1A2E"
	LightText = "#FFFFFF"
)

// RelativeLuminance 按 W3C 定义计算 sRGB 颜色的相对亮度（0 为黑，1 为白）。
// 支持 #RGB 与 #RRGGBB；无法解析时 ok 为 false。
func RelativeLuminance(hex string) (float64, bool) {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return 0, false
	}
	return 0.2126*linearize(r) + 0.7152*linearize(g) + 0.0722*linearize(b), true
}

// ContrastTextColor 在深色与浅色文字间选择对比度更高的一个。
// 无法解析的颜色按浅色背景处理。
func ContrastTextColor(hex string) string {
	bg, ok := RelativeLuminance(hex)
	if !ok {
		return DarkText
	}
	dark, _ := RelativeLuminance(DarkText)
	light, _ := RelativeLuminance(LightText)
	if contrastRatio(bg, dark) >= contrastRatio(bg, light) {
		return DarkText
	}
	return LightText
}

func contrastRatio(a, b float64) float64 {
	return (math.Max(a, b) + 0.05) / (math.Min(a, b) + 0.05)
}

func linearize(channel uint8) float64 {
	c := float64(channel) / 255
	if c <= 0.03928 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func parseHex(hex string) (r, g, b uint8, ok bool) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}
