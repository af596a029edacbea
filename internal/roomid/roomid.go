// Package roomid generates shareable room identifiers and serves them over a
// small REST endpoint. It is a collaborator of the signaling relay, not part
// of it: the relay itself treats room ids as opaque, client-supplied strings.
package roomid

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
)

var wordLists = [][]string{animals, colors, weather, places}

// New creates a random, memorable room id of the form word-word-word-word
// (e.g. "otter-amber-drizzle-fjord"), one word drawn from each list. With
// four lists of 20+ words the space is large enough that collisions between
// concurrently live rooms are not a practical concern; the relay creates
// rooms lazily either way.
func New() string {
	parts := make([]string, len(wordLists))
	for i, list := range wordLists {
		parts[i] = list[randomIndex(len(list))]
	}
	return strings.Join(parts, "-")
}

// randomIndex returns a cryptographically secure random index for a slice of
// the given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		// crypto/rand failing means the platform entropy source is broken;
		// nothing sensible to do but give up loudly.
		slog.Error("failed to generate random index", "err", err)
		panic(fmt.Sprintf("roomid: rand: %v", err))
	}
	return int(n.Int64())
}
