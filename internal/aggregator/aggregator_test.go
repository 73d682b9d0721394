package aggregator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/logtally/internal/feed"
	"github.com/atikulmunna/logtally/internal/model"
	"github.com/atikulmunna/logtally/internal/output"
	"github.com/atikulmunna/logtally/internal/taint"
)

// recorder keeps every trace and report it receives.
type recorder struct {
	traces  []model.Trace
	reports []model.Snapshot
}

func (r *recorder) Trace(t model.Trace) error {
	r.traces = append(r.traces, t)
	return nil
}

func (r *recorder) Report(s model.Snapshot) error {
	r.reports = append(r.reports, s)
	return nil
}

func logLine(code int, size int) string {
	return fmt.Sprintf("10.0.0.1 - [2024-01-01 00:00:00.000] \"GET /projects/260 HTTP/1.1\" %d %d\n", code, size)
}

func lines(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = logLine(200, 1)
	}
	return out
}

func reportedCounts(rec *recorder) []int64 {
	var out []int64
	for _, s := range rec.reports {
		out = append(out, s.Lines)
	}
	return out
}

func TestSingleValidLine(t *testing.T) {
	var buf bytes.Buffer
	agg := New(Config{}, output.NewTextReporter(&buf, false, false))

	snap, err := agg.Run(context.Background(), feed.NewSlice([]string{
		"192.168.1.1 - [2024-01-01 00:00:00.000] \"GET /projects/260 HTTP/1.1\" 200 512\n",
	}))

	require.NoError(t, err)
	assert.Equal(t, "File size: 512\n200: 1\n", buf.String())
	assert.Equal(t, int64(1), snap.Lines)
	assert.Equal(t, Terminated, agg.State())
}

func TestSingleInvalidLine(t *testing.T) {
	var buf bytes.Buffer
	agg := New(Config{}, output.NewTextReporter(&buf, false, false))

	snap, err := agg.Run(context.Background(), feed.NewSlice([]string{"bad line with no structure\n"}))

	require.NoError(t, err)
	assert.Equal(t, "File size: 0\n", buf.String())
	assert.Equal(t, int64(0), snap.TotalBytes)
	assert.Equal(t, int64(1), snap.Invalid)
}

func TestCadence(t *testing.T) {
	tests := []struct {
		n    int
		want []int64
	}{
		{0, []int64{0}},
		{9, []int64{9}},
		{10, []int64{10, 10}},
		{25, []int64{10, 20, 25}},
		{30, []int64{10, 20, 30, 30}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			rec := &recorder{}
			_, err := New(Config{}, rec).Run(context.Background(), feed.NewSlice(lines(tt.n)))

			require.NoError(t, err)
			assert.Equal(t, tt.want, reportedCounts(rec))
			for i, s := range rec.reports {
				assert.Equal(t, i == len(rec.reports)-1, s.Final)
			}
		})
	}
}

func TestCustomCadence(t *testing.T) {
	rec := &recorder{}
	_, err := New(Config{Cadence: 3}, rec).Run(context.Background(), feed.NewSlice(lines(7)))

	require.NoError(t, err)
	assert.Equal(t, []int64{3, 6, 7}, reportedCounts(rec))
}

func TestTotals(t *testing.T) {
	input := []string{
		logLine(200, 100),
		logLine(404, 50),
		logLine(418, 7), // counted, no bucket
		logLine(500, 0), // zero size is not counted
		"bad\n",
		"\n",
		logLine(200, 3),
	}
	rec := &recorder{}

	snap, err := New(Config{}, rec).Run(context.Background(), feed.NewSlice(input))

	require.NoError(t, err)
	assert.Equal(t, int64(160), snap.TotalBytes)
	assert.Equal(t, int64(7), snap.Lines)
	assert.Equal(t, int64(4), snap.Valid)
	assert.Equal(t, int64(3), snap.Invalid)
	assert.Equal(t, []model.CodeCount{{Code: 200, Count: 2}, {Code: 404, Count: 1}}, snap.Codes)
}

func TestVerboseTraces(t *testing.T) {
	rec := &recorder{}
	_, err := New(Config{Verbose: true}, rec).Run(context.Background(), feed.NewSlice([]string{logLine(200, 1), "bad\n"}))

	require.NoError(t, err)
	require.Len(t, rec.traces, 2)
	assert.Equal(t, int64(1), rec.traces[0].N)
	assert.Equal(t, model.Valid, rec.traces[0].Result.Outcome)
	assert.Equal(t, int64(2), rec.traces[1].N)
	assert.Equal(t, model.FieldAddress, rec.traces[1].Result.Field)
}

func TestQuietHasNoTraces(t *testing.T) {
	rec := &recorder{}
	_, err := New(Config{}, rec).Run(context.Background(), feed.NewSlice(lines(3)))

	require.NoError(t, err)
	assert.Empty(t, rec.traces)
}

func TestTaintImpliesVerbose(t *testing.T) {
	var buf bytes.Buffer
	script := taint.NewScript(taint.Untouched, taint.MarkCode, taint.Blank, taint.DropQuotes)
	agg := New(Config{Taint: true}, output.NewTextReporter(&buf, true, false), WithCorruptor(script))

	snap, err := agg.Run(context.Background(), feed.NewSlice(lines(4)))

	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Valid)
	assert.Equal(t, int64(1), snap.TotalBytes)

	want := " 1. 10.0.0.1 - [2024-01-01 00:00:00.000] \"GET /projects/260 HTTP/1.1\" 200 1\n" +
		" 2. 10.0.0.1 - [2024-01-01 00:00:00.000] \"GET /projects/260 HTTP/1.1\" CODE 1\t>>> status\n" +
		" 3.\t>>> BLANK\n" +
		" 4. 10.0.0.1 - [2024-01-01 00:00:00.000] GET /projects/260 HTTP/1.1 200 1\t>>> request\n" +
		"Total logs: 4\t(valid: 1, invalid: 3)\n" +
		"File size: 1\n" +
		"200: 1\n"
	assert.Equal(t, want, buf.String())
}

// cancelAfter cancels the run once n lines were handed out.
type cancelAfter struct {
	n      int
	cancel context.CancelFunc
	inner  feed.Feed
}

func (c *cancelAfter) Next(ctx context.Context) (string, error) {
	if c.n == 0 {
		c.cancel()
	}
	c.n--
	return c.inner.Next(ctx)
}

func TestInterruptDrainsToFinalReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{}

	f := &cancelAfter{n: 13, cancel: cancel, inner: feed.NewSlice(lines(100))}
	snap, err := New(Config{}, rec).Run(ctx, f)

	require.NoError(t, err)
	assert.Equal(t, int64(13), snap.Lines)
	assert.Equal(t, []int64{10, 13}, reportedCounts(rec))
	assert.True(t, snap.Final)
}

type failingFeed struct{ err error }

func (f failingFeed) Next(context.Context) (string, error) { return "", f.err }

func TestFeedErrorStillReports(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder{}
	agg := New(Config{}, rec)

	_, err := agg.Run(context.Background(), failingFeed{err: boom})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, rec.reports, 1)
	assert.Equal(t, Terminated, agg.State())
}

func TestRunAfterTerminated(t *testing.T) {
	rec := &recorder{}
	agg := New(Config{}, rec)

	_, err := agg.Run(context.Background(), feed.NewSlice(lines(2)))
	require.NoError(t, err)

	snap, err := agg.Run(context.Background(), feed.NewSlice(lines(5)))
	assert.ErrorIs(t, err, ErrTerminated)
	assert.Equal(t, int64(2), snap.Lines)
	assert.Len(t, rec.reports, 1)
}

// countingPacer records pauses and can interrupt the run on a given call.
type countingPacer struct {
	calls  int
	stopAt int
}

func (p *countingPacer) Pause(context.Context) error {
	p.calls++
	if p.calls == p.stopAt {
		return context.Canceled
	}
	return nil
}

func TestPacerRunsPerLine(t *testing.T) {
	p := &countingPacer{}
	_, err := New(Config{}, &recorder{}, WithPacer(p)).Run(context.Background(), feed.NewSlice(lines(5)))

	require.NoError(t, err)
	assert.Equal(t, 5, p.calls)
}

func TestInterruptDuringPause(t *testing.T) {
	p := &countingPacer{stopAt: 3}
	snap, err := New(Config{}, &recorder{}, WithPacer(p)).Run(context.Background(), feed.NewSlice(lines(5)))

	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Lines)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "reporting", Reporting.String())
	assert.Equal(t, "terminated", Terminated.String())
}
