package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/atikulmunna/logtally/internal/model"
)

// Validator checks a raw log line and extracts its status code and byte size.
type Validator interface {
	Validate(line string) model.Result
}

const (
	// Request is the only request line accepted inside the quotes.
	Request = "GET /projects/260 HTTP/1.1"

	// DateLayout is the layout of the timestamp before its fractional part.
	DateLayout = "2006-01-02 15:04:05"

	// corruptionMarker in a line always fails the status field.
	corruptionMarker = "CODE"
)

// ---------------------------------------------------------------------------
// Access-log validator
// ---------------------------------------------------------------------------

// AccessLogValidator matches lines of the form
//
//	<address> - [<YYYY-MM-DD HH:MM:SS>.<frac>] "GET /projects/260 HTTP/1.1" <status> <size>
//
// one field at a time, left to right. It holds no mutable state and is safe
// for concurrent use.
type AccessLogValidator struct {
	address   *regexp.Regexp
	timestamp *regexp.Regexp
	request   *regexp.Regexp
	status    *regexp.Regexp
	size      *regexp.Regexp
	digits    *regexp.Regexp
}

func NewAccessLogValidator() *AccessLogValidator {
	return &AccessLogValidator{
		address:   regexp.MustCompile(`^\S+\s*-\s*\[`),
		timestamp: regexp.MustCompile(`^([^\]]*)\]`),
		request:   regexp.MustCompile(`^ ?"([^"]*)"`),
		status:    regexp.MustCompile(`^ (\S+)`),
		size:      regexp.MustCompile(`^ (\d*)$`),
		digits:    regexp.MustCompile(`^\d+$`),
	}
}

// Validate runs the five stages over the line. The first stage that does not
// match decides the failed field; nothing is extracted from a failed line.
func (v *AccessLogValidator) Validate(line string) model.Result {
	c := &cursor{line: strings.TrimSuffix(line, "\n")}

	if !c.consume(v.matchAddress) {
		return fail(model.FieldAddress)
	}
	if !c.consume(v.matchTimestamp) {
		return fail(model.FieldDate)
	}
	if !c.consume(v.matchRequest) {
		return fail(model.FieldRequest)
	}

	n, code, ok := v.matchStatus(c.rest())
	if !ok || strings.Contains(line, corruptionMarker) {
		return fail(model.FieldStatus)
	}
	c.advance(n)

	_, size, ok := v.matchSize(c.rest())
	if !ok {
		return fail(model.FieldSize)
	}

	r := model.Result{Outcome: model.Valid, StatusCode: code, ByteSize: size}
	if size == 0 {
		r.Outcome = model.ZeroSize
	}
	return r
}

// matchAddress consumes the client address, the dash and the opening bracket.
func (v *AccessLogValidator) matchAddress(rest string) (int, bool) {
	loc := v.address.FindStringIndex(rest)
	if loc == nil {
		return 0, false
	}
	return loc[1], true
}

// matchTimestamp consumes the timestamp up to and including the closing
// bracket. The date part must survive a parse/format round trip and the
// fractional part must be digits only.
func (v *AccessLogValidator) matchTimestamp(rest string) (int, bool) {
	m := v.timestamp.FindStringSubmatchIndex(rest)
	if m == nil {
		return 0, false
	}
	date, frac, found := strings.Cut(rest[m[2]:m[3]], ".")
	if !found || !v.digits.MatchString(frac) {
		return 0, false
	}
	t, err := time.Parse(DateLayout, date)
	if err != nil || t.Format(DateLayout) != date {
		return 0, false
	}
	return m[1], true
}

// matchRequest consumes the quoted request string.
func (v *AccessLogValidator) matchRequest(rest string) (int, bool) {
	m := v.request.FindStringSubmatchIndex(rest)
	if m == nil || rest[m[2]:m[3]] != Request {
		return 0, false
	}
	return m[1], true
}

// matchStatus consumes the status field. A non-numeric status yields code 0.
func (v *AccessLogValidator) matchStatus(rest string) (int, int, bool) {
	m := v.status.FindStringSubmatchIndex(rest)
	if m == nil {
		return 0, 0, false
	}
	return m[1], v.number(rest[m[2]:m[3]]), true
}

// matchSize consumes the byte size, which must run to the end of the line.
func (v *AccessLogValidator) matchSize(rest string) (int, int64, bool) {
	m := v.size.FindStringSubmatchIndex(rest)
	if m == nil {
		return 0, 0, false
	}
	return m[1], int64(v.number(rest[m[2]:m[3]])), true
}

// number parses an all-digit string, returning 0 for anything else.
func (v *AccessLogValidator) number(s string) int {
	if !v.digits.MatchString(s) {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// cursor tracks how much of a line earlier stages consumed.
type cursor struct {
	line string
	pos  int
}

func (c *cursor) rest() string { return c.line[c.pos:] }

func (c *cursor) advance(n int) { c.pos += n }

// consume runs a stage on the unconsumed input and advances past its match.
func (c *cursor) consume(stage func(rest string) (int, bool)) bool {
	n, ok := stage(c.rest())
	if ok {
		c.advance(n)
	}
	return ok
}

func fail(f model.Field) model.Result {
	return model.Result{Outcome: model.Invalid, Field: f}
}
