// Package userid mints user identifiers and whimsical display names for
// joiners who don't supply their own, grounded on the teacher's
// services/user_service.go.
package userid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// Generate mints an id of the form user_<timestamp>_<nonce>, per spec §4.D.
func Generate() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("user_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(b))
}

var adjectives = []string{
	"Swift", "Bright", "Clever", "Quick", "Creative", "Bold", "Calm",
	"Artistic", "Sharp", "Wise",
}

var nouns = []string{
	"Sketcher", "Penguin", "Phoenix", "Painter", "Tiger", "Designer",
	"Wolf", "Builder", "Hawk", "Dreamer",
}

// DisplayName generates a whimsical "Adjective Noun" suggestion for joiners
// who didn't supply a username, per spec §4.D.
func DisplayName() string {
	adjIdx, _ := rand.Int(rand.Reader, big.NewInt(int64(len(adjectives))))
	nounIdx, _ := rand.Int(rand.Reader, big.NewInt(int64(len(nouns))))
	return fmt.Sprintf("%s %s", adjectives[adjIdx.Int64()], nouns[nounIdx.Int64()])
}
