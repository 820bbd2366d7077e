package theme

// DefaultPresetID 是未知或缺省预设时回退的目录首项。
const DefaultPresetID = "clean-white"

// 按钮样式。
const (
	ButtonFilled   = "filled"
	ButtonOutlined = "outlined"
)

// Preset 是一套命名的默认样式。
type Preset struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BgColor      string `json:"bgColor"`
	BgGradient   string `json:"bgGradient,omitempty"`
	TextColor    string `json:"textColor"`
	BtnBgColor   string `json:"btnBgColor"`
	BtnTextColor string `json:"btnTextColor"`
	BtnStyle     string `json:"btnStyle"`
	BtnRadius    string `json:"btnRadius"`
	Font         string `json:"font,omitempty"`
}

var presets = []Preset{
	{
		ID:           "clean-white",
		Name:         "Clean White",
		BgColor:      "#FFFFFF",
		TextColor:    "#1A1A2E",
		BtnBgColor:   "#1A1A2E",
		BtnTextColor: "#FFFFFF",
		BtnStyle:     ButtonFilled,
		BtnRadius:    "md",
	},
	{
		ID:           "midnight-dark",
		Name:         "Midnight Dark",
		BgColor:      "#0F172A",
		TextColor:    "#F1F5F9",
		BtnBgColor:   "#1E293B",
		BtnTextColor: "#F1F5F9",
		BtnStyle:     ButtonFilled,
		BtnRadius:    "md",
	},
	{
		ID:           "ocean-breeze",
		Name:         "Ocean Breeze",
		BgColor:      "#1E3A5F",
		BgGradient:   "linear-gradient(135deg, #667EEA 0%, #764BA2 100%)",
		TextColor:    "#FFFFFF",
		BtnBgColor:   "rgba(255,255,255,0.15)",
		BtnTextColor: "#FFFFFF",
		BtnStyle:     ButtonFilled,
		BtnRadius:    "full",
	},
	{
		ID:           "sunset-glow",
		Name:         "Sunset Glow",
		BgColor:      "#FF6B35",
		BgGradient:   "linear-gradient(135deg, #F97316 0%, #EC4899 100%)",
		TextColor:    "#FFFFFF",
		BtnBgColor:   "rgba(255,255,255,0.2)",
		BtnTextColor: "#FFFFFF",
		BtnStyle:     ButtonFilled,
		BtnRadius:    "full",
	},
	{
		ID:           "forest-green",
		Name:         "Forest Green",
		BgColor:      "#F0FDF4",
		TextColor:    "#14532D",
		BtnBgColor:   "#16A34A",
		BtnTextColor: "#FFFFFF",
		BtnStyle:     ButtonFilled,
		BtnRadius:    "sm",
	},
	{
		ID:           "lavender-dream",
		Name:         "Lavender Dream",
		BgColor:      "#F5F3FF",
		TextColor:    "#4C1D95",
		BtnBgColor:   "#FFFFFF",
		BtnTextColor: "#4C1D95",
		BtnStyle:     ButtonOutlined,
		BtnRadius:    "md",
	},
	{
		ID:           "neon-night",
		Name:         "Neon Night",
		BgColor:      "#0A0A0A",
		TextColor:    "#D4FF00",
		BtnBgColor:   "transparent",
		BtnTextColor: "#D4FF00",
		BtnStyle:     ButtonOutlined,
		BtnRadius:    "none",
	},
	{
		ID:           "soft-coral",
		Name:         "Soft Coral",
		BgColor:      "#FFF1F2",
		TextColor:    "#881337",
		BtnBgColor:   "#FB7185",
		BtnTextColor: "#FFFFFF",
		BtnStyle:     ButtonFilled,
		BtnRadius:    "full",
	},
}

// Presets 返回预设目录的副本，顺序固定。
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// Lookup 按 ID 查找预设。
func Lookup(id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Exists 判断预设 ID 是否在目录中。
func Exists(id string) bool {
	_, ok := Lookup(id)
	return ok
}
