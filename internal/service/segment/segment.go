// Package segment provides utterance segment ID generation and lifecycle
// management. A segment is one utterance of user speech; the lifecycle
// guarantees at most one final transcript reaches the admission engine per
// segment.
package segment

import (
	"fmt"
	"sync/atomic"
)

// Generator produces monotonically increasing segment IDs per interaction.
type Generator struct {
	counter uint64
}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) Next(interactionId string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-utt-%d", interactionId, n)
}
