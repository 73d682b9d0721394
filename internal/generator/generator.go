package generator

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/atikulmunna/logtally/internal/model"
	"github.com/atikulmunna/logtally/internal/parser"
)

// DefaultBatchSize is the number of lines generated for list mode.
const DefaultBatchSize = 10000

const lineFormat = "%d.%d.%d.%d - [%s] \"%s\" %d %d\n"

// Generator builds synthetic, well-formed access-log lines.
type Generator struct {
	rnd *rand.Rand
	now func() time.Time
}

// New returns a Generator. A nil rnd uses a randomly seeded source and a nil
// now uses time.Now.
func New(rnd *rand.Rand, now func() time.Time) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{rnd: rnd, now: now}
}

// Line returns one line with a random address, status bucket and size in [1, 1024].
func (g *Generator) Line() string {
	return fmt.Sprintf(lineFormat,
		g.octet(), g.octet(), g.octet(), g.octet(),
		g.now().Format(parser.DateLayout+".000000"),
		parser.Request,
		model.Buckets[g.rnd.IntN(len(model.Buckets))],
		1+g.rnd.IntN(1024),
	)
}

// Batch returns n lines. A non-positive n yields DefaultBatchSize lines.
func (g *Generator) Batch(n int) []string {
	if n <= 0 {
		n = DefaultBatchSize
	}
	lines := make([]string, n)
	for i := range lines {
		lines[i] = g.Line()
	}
	return lines
}

func (g *Generator) octet() int {
	return 1 + g.rnd.IntN(255)
}
