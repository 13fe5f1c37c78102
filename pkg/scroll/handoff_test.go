package scroll

import (
	"net/url"
	"testing"
)

func TestHandoff_Encode(t *testing.T) {
	v := url.Values{}
	Handoff{ScrollY: 320, Loading: true}.Encode(v)
	if got := v.Encode(); got != "preserveScroll=true&scrollY=320" {
		t.Errorf("Encode() = %q", got)
	}

	v = url.Values{}
	Handoff{ScrollY: 320}.Encode(v)
	if len(v) != 0 {
		t.Errorf("a handoff that is not loading must add nothing, got %v", v)
	}
}

func TestDecodeHandoff(t *testing.T) {
	tests := []struct {
		query string
		want  Handoff
		ok    bool
	}{
		{"", Handoff{}, false},
		{"scrollY=100", Handoff{}, false},
		{"preserveScroll=1&scrollY=100", Handoff{}, false},
		{"preserveScroll=true&scrollY=100", Handoff{ScrollY: 100, Loading: true}, true},
		{"preserveScroll=true", Handoff{Loading: true}, true},
		{"preserveScroll=true&scrollY=-5", Handoff{Loading: true}, true},
		{"preserveScroll=true&scrollY=abc", Handoff{Loading: true}, true},
	}

	for _, tt := range tests {
		v, _ := url.ParseQuery(tt.query)
		got, ok := DecodeHandoff(v)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DecodeHandoff(%q) = %+v, %v; want %+v, %v", tt.query, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStripHandoff(t *testing.T) {
	v, _ := url.ParseQuery("limit=40&preserveScroll=true&scrollY=9")
	StripHandoff(v)
	if got := v.Encode(); got != "limit=40" {
		t.Errorf("after StripHandoff: %q", got)
	}
}
