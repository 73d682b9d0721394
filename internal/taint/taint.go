package taint

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// Corruptor optionally mutates a line before it is validated.
type Corruptor interface {
	Corrupt(line string) string
}

// Kind names a corruption applied to a line.
type Kind int

const (
	Untouched Kind = iota
	DropAddress
	DropBrackets
	DropQuotes
	MarkCode
	DropLastToken
	Blank
)

// Kinds lists every corruption that actually changes a line.
var Kinds = []Kind{DropAddress, DropBrackets, DropQuotes, MarkCode, DropLastToken, Blank}

func (k Kind) String() string {
	switch k {
	case DropAddress:
		return "drop-address"
	case DropBrackets:
		return "drop-brackets"
	case DropQuotes:
		return "drop-quotes"
	case MarkCode:
		return "mark-code"
	case DropLastToken:
		return "drop-last-token"
	case Blank:
		return "blank"
	default:
		return "untouched"
	}
}

// Apply returns line corrupted by kind. Lines too short for a corruption are
// returned unchanged.
func Apply(kind Kind, line string) string {
	switch kind {
	case DropAddress:
		if i := strings.Index(line, "-"); i >= 0 {
			return line[i:]
		}
	case DropBrackets:
		return strings.ReplaceAll(line, "]", " ")
	case DropQuotes:
		return strings.ReplaceAll(line, `"`, "")
	case MarkCode:
		// Overwrites the three characters before the last space, which is
		// the status code in a well-formed line.
		if i := strings.LastIndex(line, " "); i >= 3 {
			return line[:i-3] + "CODE" + line[i:]
		}
	case DropLastToken:
		fields := strings.Fields(line)
		if len(fields) > 0 {
			return strings.Join(fields[:len(fields)-1], " ")
		}
	case Blank:
		return "\n"
	}
	return line
}

// ---------------------------------------------------------------------------
// Random corruptor
// ---------------------------------------------------------------------------

// DefaultUntouchedWeight leaves 7 of every 13 draws alone, so slightly under
// half of all lines get corrupted, split evenly across Kinds.
const DefaultUntouchedWeight = 7

// Random corrupts lines at random. Each Kind has weight 1 against the
// untouched weight.
type Random struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	untouched int
}

// NewRandom returns a Random corruptor. A nil rnd uses a randomly seeded
// source; a negative untouched weight falls back to the default.
func NewRandom(rnd *rand.Rand, untouched int) *Random {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if untouched < 0 {
		untouched = DefaultUntouchedWeight
	}
	return &Random{rnd: rnd, untouched: untouched}
}

func (r *Random) Corrupt(line string) string {
	return Apply(r.Pick(), line)
}

// Pick draws the next corruption kind.
func (r *Random) Pick() Kind {
	r.mu.Lock()
	n := r.rnd.IntN(len(Kinds) + r.untouched)
	r.mu.Unlock()

	if n < len(Kinds) {
		return Kinds[n]
	}
	return Untouched
}

// ---------------------------------------------------------------------------
// Deterministic corruptors
// ---------------------------------------------------------------------------

// Script replays a fixed sequence of kinds, starting over when exhausted.
type Script struct {
	kinds []Kind
	next  int
}

func NewScript(kinds ...Kind) *Script {
	return &Script{kinds: kinds}
}

func (s *Script) Corrupt(line string) string {
	if len(s.kinds) == 0 {
		return line
	}
	k := s.kinds[s.next%len(s.kinds)]
	s.next++
	return Apply(k, line)
}

// Nop leaves every line untouched.
type Nop struct{}

func (Nop) Corrupt(line string) string { return line }
