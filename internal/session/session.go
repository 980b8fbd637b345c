// Package session models the server-side binding between a connection and
// a room membership: identity, color, and activity timestamps.
package session

import "time"

// ConnHandle is an opaque per-connection identity. The dispatcher's
// websocket connection satisfies this indirectly; kept as an interface{}
// alias here so this package stays free of a websocket import, mirroring
// how the teacher's models/session.go keeps UserSession free of *websocket.Conn.
type ConnHandle = any

// Session is the server-side binding between a connection and a room
// membership, per spec §3.
type Session struct {
	ID           string
	Conn         ConnHandle
	DisplayName  string
	Color        string
	IsHost       bool
	RoomID       string
	JoinedAt     time.Time
	LastActivity time.Time
}

// Touch bumps LastActivity to now.
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}

// Palette is the fixed 10-color pool rooms assign from, per §4.C.
var Palette = [10]string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8",
	"#F7DC6F", "#BB8FCE", "#85C1E9", "#F8B739", "#52BE80",
}

// AssignColor picks the first palette color not already held by a member of
// used, or a deterministic HSL-derived hue once the palette is exhausted.
// Colors are derived from current membership rather than a separate
// free-list, per §9 ("Color pool"): this prevents the pool and the
// membership set from drifting apart.
func AssignColor(used map[string]bool, rotatingSeed int) string {
	for _, c := range Palette {
		if !used[c] {
			return c
		}
	}
	hue := (rotatingSeed * 47) % 360
	return hslHex(hue)
}

// hslHex renders a fully-saturated, mid-lightness hue as a deterministic
// hex string without pulling in a color-space library — there is no
// ecosystem dependency in this corpus for HSL conversion, so this stays on
// the standard library per the spec's "deterministic hue" requirement.
func hslHex(hue int) string {
	h := float64(hue) / 60.0
	x := 1 - absFloat(modFloat(h, 2)-1)
	var r, g, b float64
	switch {
	case h < 1:
		r, g, b = 1, x, 0
	case h < 2:
		r, g, b = x, 1, 0
	case h < 3:
		r, g, b = 0, 1, x
	case h < 4:
		r, g, b = 0, x, 1
	case h < 5:
		r, g, b = x, 0, 1
	default:
		r, g, b = 1, 0, x
	}
	return rgbHex(r, g, b)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func modFloat(v, m float64) float64 {
	for v >= m {
		v -= m
	}
	return v
}

func rgbHex(r, g, b float64) string {
	const hexDigits = "0123456789ABCDEF"
	comp := func(v float64) string {
		n := int(v * 255)
		if n > 255 {
			n = 255
		}
		if n < 0 {
			n = 0
		}
		return string([]byte{hexDigits[n/16], hexDigits[n%16]})
	}
	return "#" + comp(r) + comp(g) + comp(b)
}
