package model

import "sort"

// Field identifies one of the five ordered components of a log line.
type Field int

const (
	FieldNone Field = iota
	FieldAddress
	FieldDate
	FieldRequest
	FieldStatus
	FieldSize
)

func (f Field) String() string {
	switch f {
	case FieldAddress:
		return "address"
	case FieldDate:
		return "date"
	case FieldRequest:
		return "request"
	case FieldStatus:
		return "status"
	case FieldSize:
		return "size"
	default:
		return "none"
	}
}

// MarshalText renders the field by name in JSON output.
func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Outcome classifies a validated line.
type Outcome int

const (
	// Invalid means matching stopped at Result.Field.
	Invalid Outcome = iota
	// Valid means every field matched and the byte size is non-zero.
	Valid
	// ZeroSize means every field matched but the byte size is 0. Callers must
	// treat it exactly like Invalid when aggregating; it only differs in tracing.
	ZeroSize
)

func (o Outcome) String() string {
	switch o {
	case Valid:
		return "valid"
	case ZeroSize:
		return "zero_size"
	default:
		return "invalid"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is the outcome of validating a single line.
type Result struct {
	Outcome    Outcome `json:"outcome"`
	Field      Field   `json:"field,omitempty"`
	StatusCode int     `json:"status_code,omitempty"`
	ByteSize   int64   `json:"byte_size,omitempty"`
}

// Counted reports whether the result contributes to bytes and buckets.
func (r Result) Counted() bool {
	return r.Outcome == Valid && r.ByteSize != 0
}

// Buckets is the closed set of status codes tracked individually.
var Buckets = []int{200, 301, 400, 401, 403, 404, 405, 500}

// IsBucket reports whether code is tracked individually.
func IsBucket(code int) bool {
	for _, b := range Buckets {
		if b == code {
			return true
		}
	}
	return false
}

// Summary is the running aggregate for a whole run.
type Summary struct {
	TotalBytes int64
	Codes      map[int]int64
	Lines      int64
	Valid      int64
}

// NewSummary returns a zero-valued Summary with every bucket present.
func NewSummary() *Summary {
	codes := make(map[int]int64, len(Buckets))
	for _, b := range Buckets {
		codes[b] = 0
	}
	return &Summary{Codes: codes}
}

// Record consumes one line's result.
func (s *Summary) Record(r Result) {
	s.Lines++
	if !r.Counted() {
		return
	}
	s.Valid++
	s.TotalBytes += r.ByteSize
	if IsBucket(r.StatusCode) {
		s.Codes[r.StatusCode]++
	}
}

// CodeCount is a single non-empty bucket in a Snapshot.
type CodeCount struct {
	Code  int   `json:"code"`
	Count int64 `json:"count"`
}

// Snapshot is a point-in-time copy of a Summary handed to reporters.
type Snapshot struct {
	Lines      int64       `json:"total_logs"`
	Valid      int64       `json:"valid"`
	Invalid    int64       `json:"invalid"`
	TotalBytes int64       `json:"file_size"`
	Codes      []CodeCount `json:"codes"`
	Final      bool        `json:"final"`
}

// Snapshot copies the summary. Buckets with a zero count are omitted and the
// remaining ones are sorted by status code.
func (s *Summary) Snapshot(final bool) Snapshot {
	snap := Snapshot{
		Lines:      s.Lines,
		Valid:      s.Valid,
		Invalid:    s.Lines - s.Valid,
		TotalBytes: s.TotalBytes,
		Codes:      []CodeCount{},
		Final:      final,
	}
	for code, n := range s.Codes {
		if n > 0 {
			snap.Codes = append(snap.Codes, CodeCount{Code: code, Count: n})
		}
	}
	sort.Slice(snap.Codes, func(i, j int) bool { return snap.Codes[i].Code < snap.Codes[j].Code })
	return snap
}

// Trace describes one processed line for verbose output.
type Trace struct {
	N      int64  `json:"line_no"`
	Line   string `json:"line"`
	Result Result `json:"result"`
}
