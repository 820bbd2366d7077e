// Package theme 将命名预设与用户覆盖项合并为最终主题，不涉及任何 I/O。
package theme

const defaultFont = "Pretendard"

var radiusMap = map[string]string{
	"none": "0px",
	"sm":   "6px",
	"md":   "8px",
	"full": "9999px",
}

const fallbackRadius = "8px"

// Overrides 是逐字段的主题覆盖；空字符串视为未设置。
type Overrides struct {
	BgColor      string `json:"bgColor,omitempty" binding:"omitempty,max=100"`
	BgGradient   string `json:"bgGradient,omitempty" binding:"omitempty,max=300"`
	TextColor    string `json:"textColor,omitempty" binding:"omitempty,max=100"`
	BtnBgColor   string `json:"btnBgColor,omitempty" binding:"omitempty,max=100"`
	BtnTextColor string `json:"btnTextColor,omitempty" binding:"omitempty,max=100"`
	BtnStyle     string `json:"btnStyle,omitempty" binding:"omitempty,oneof=filled outlined"`
	BtnRadius    string `json:"btnRadius,omitempty" binding:"omitempty,oneof=none sm md full"`
	Font         string `json:"font,omitempty" binding:"omitempty,max=100"`
}

// Resolved 是渲染公开页所需的完整主题。
type Resolved struct {
	Bg           string `json:"bg"`
	Gradient     string `json:"gradient,omitempty"`
	Text         string `json:"text"`
	BtnBg        string `json:"btnBg"`
	BtnText      string `json:"btnText"`
	BtnStyle     string `json:"btnStyle"`
	Radius       string `json:"radius"`
	Font         string `json:"font"`
	ContrastText string `json:"contrastText"`
}

// Background 是公开页背景的 CSS 属性；三种形态互斥。
type Background struct {
	BackgroundImage    string `json:"backgroundImage,omitempty"`
	BackgroundSize     string `json:"backgroundSize,omitempty"`
	BackgroundPosition string `json:"backgroundPosition,omitempty"`
	Background         string `json:"background,omitempty"`
	BackgroundColor    string `json:"backgroundColor,omitempty"`
}

// Resolve 逐字段合并：覆盖项非空时取覆盖值，否则取预设值；未知预设回退到目录首项。
func Resolve(presetID string, overrides *Overrides) Resolved {
	preset, ok := Lookup(presetID)
	if !ok {
		preset = presets[0]
	}
	var o Overrides
	if overrides != nil {
		o = *overrides
	}

	radius, ok := radiusMap[pick(o.BtnRadius, preset.BtnRadius)]
	if !ok {
		radius = fallbackRadius
	}

	resolved := Resolved{
		Bg:       pick(o.BgColor, preset.BgColor),
		Gradient: pick(o.BgGradient, preset.BgGradient),
		Text:     pick(o.TextColor, preset.TextColor),
		BtnBg:    pick(o.BtnBgColor, preset.BtnBgColor),
		BtnText:  pick(o.BtnTextColor, preset.BtnTextColor),
		BtnStyle: pick(o.BtnStyle, preset.BtnStyle),
		Radius:   radius,
		Font:     pick(o.Font, pick(preset.Font, defaultFont)),
	}
	resolved.ContrastText = ContrastTextColor(resolved.Bg)
	return resolved
}

// BackgroundStyle 计算背景：图片优先，其次渐变，最后纯色。
func BackgroundStyle(presetID string, overrides *Overrides, imageURL string) Background {
	if imageURL != "" {
		return Background{
			BackgroundImage:    "url(" + imageURL + ")",
			BackgroundSize:     "cover",
			BackgroundPosition: "center",
		}
	}

	resolved := Resolve(presetID, overrides)
	if resolved.Gradient != "" {
		return Background{Background: resolved.Gradient}
	}
	return Background{BackgroundColor: resolved.Bg}
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
