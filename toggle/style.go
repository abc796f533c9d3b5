package toggle

import "fmt"

// Style is how one react kind is drawn.
type Style struct {
	Name string `json:"name"`
	// Icon is drawn when the current user has reacted, OutlinedIcon otherwise.
	Icon         string `json:"icon"`
	OutlinedIcon string `json:"outlined_icon"`
	// Color tints Icon; empty means the theme default.
	Color      string `json:"color,omitempty"`
	BadgeColor string `json:"badge_color"`
}

type Styles map[Kind]Style

// DefaultStyles maps the kinds the web client draws. The meaning of each id
// is inferred from the icon it was given there, not from a server contract.
var DefaultStyles = Styles{
	2: {Name: "thumbs-down", Icon: "ThumbDown", OutlinedIcon: "ThumbDownOutlined", BadgeColor: "secondary"},
	3: {Name: "favorite", Icon: "Favorite", OutlinedIcon: "FavoriteBorder", Color: "#f44336", BadgeColor: "secondary"},
	4: {Name: "star", Icon: "Star", OutlinedIcon: "StarBorderOutlined", Color: "#ffeb3b", BadgeColor: "secondary"},
}

// Lookup returns the style for kind, or a generic one for unknown kinds.
func (s Styles) Lookup(kind Kind) Style {
	if style, ok := s[kind]; ok {
		return style
	}
	return Style{
		Name:         fmt.Sprintf("react-%d", int(kind)),
		Icon:         "Mood",
		OutlinedIcon: "MoodOutlined",
		BadgeColor:   "secondary",
	}
}

// View is everything a front end needs to draw one toggle.
type View struct {
	Kind    Kind   `json:"react_id"`
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Reacted bool   `json:"is_reacted"`
	Icon    string `json:"icon"`
	Color   string `json:"color,omitempty"`
	Badge   string `json:"badge_color"`
}

func (s Styles) View(kind Kind, state State) View {
	style := s.Lookup(kind)
	v := View{
		Kind:    kind,
		Name:    style.Name,
		Count:   state.Count,
		Reacted: state.Reacted,
		Icon:    style.OutlinedIcon,
		Badge:   style.BadgeColor,
	}
	if state.Reacted {
		v.Icon = style.Icon
		v.Color = style.Color
	}
	return v
}
