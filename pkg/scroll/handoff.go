package scroll

import (
	"net/url"
	"strconv"
)

// URL parameters carrying a Handoff across a navigation.
const (
	ParamPreserveScroll = "preserveScroll"
	ParamScrollY        = "scrollY"
)

// Handoff is the scroll marker passed from the view that triggered a
// larger page to the view that renders it.
type Handoff struct {
	ScrollY int  `json:"scroll_y"`
	Loading bool `json:"loading"`
}

// Encode adds the handoff to v. A handoff that is not loading adds nothing.
func (h Handoff) Encode(v url.Values) {
	if !h.Loading {
		return
	}
	v.Set(ParamPreserveScroll, "true")
	v.Set(ParamScrollY, strconv.Itoa(max(h.ScrollY, 0)))
}

// DecodeHandoff reads a handoff from v. The boolean is false when v does
// not carry one.
func DecodeHandoff(v url.Values) (Handoff, bool) {
	if v.Get(ParamPreserveScroll) != "true" {
		return Handoff{}, false
	}
	y, err := strconv.Atoi(v.Get(ParamScrollY))
	if err != nil || y < 0 {
		y = 0
	}
	return Handoff{ScrollY: y, Loading: true}, true
}

// StripHandoff removes the handoff parameters from v.
func StripHandoff(v url.Values) {
	v.Del(ParamPreserveScroll)
	v.Del(ParamScrollY)
}
