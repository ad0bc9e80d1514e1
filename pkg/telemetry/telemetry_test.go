package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	events "github.com/docker/go-events"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/xdr"
	"github.com/marmos91/dittopnfs/internal/ratelimiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink stores every event it receives.
type recordingSink struct {
	mu      sync.Mutex
	reports []Report
	closed  bool
	fail    int // number of writes to fail before succeeding
	block   chan struct{}
}

func (s *recordingSink) Write(event events.Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail > 0 {
		s.fail--
		return errors.New("transient")
	}
	s.reports = append(s.reports, event.(Report))
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) snapshot() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Report(nil), s.reports...)
}

func sampleLayoutReturn() *xdr.FlexLayoutReturn {
	dev := [types.DeviceIDSize]byte{0, 0, 0, 7}
	return &xdr.FlexLayoutReturn{
		IOStatsReport: []xdr.FlexIOStats{{
			Offset:   0,
			Length:   types.UInt64Max,
			StateID:  types.StateID{Seqid: 1},
			Read:     xdr.IOInfo{Count: 3, Bytes: 12288},
			Write:    xdr.IOInfo{Count: 1, Bytes: 4096},
			DeviceID: dev,
			LayoutUpdate: xdr.FlexLayoutUpdate{
				Addr:    xdr.NetAddr{Netid: "tcp", Addr: "10.0.0.1.8.1"},
				FHandle: []byte{0xca, 0xfe},
				Read: xdr.FlexIOLatency{
					OpsCompleted:  3,
					TotalBusyTime: types.Time{Seconds: 1, Nseconds: 500},
				},
				Duration: types.Time{Seconds: 2},
			},
		}},
		IOErrReport: []xdr.FlexIOErr{{
			Offset:  4096,
			Length:  8192,
			StateID: types.StateID{Seqid: 2},
			Errors: []xdr.DeviceError{
				{DeviceID: dev, Status: types.NFS4ErrNXIO, Opnum: types.OpWrite},
			},
		}},
	}
}

func TestReportsFromLayoutReturn(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	client := netip.MustParseAddr("192.0.2.10")

	reports := ReportsFromLayoutReturn(client, sampleLayoutReturn(), now)
	require.Len(t, reports, 2)

	stats := reports[0]
	assert.Equal(t, KindIOStats, stats.Kind)
	assert.Equal(t, "192.0.2.10", stats.Client)
	assert.Equal(t, now, stats.ReceivedAt)
	assert.NotEmpty(t, stats.ID)
	require.NotNil(t, stats.IOStats)
	assert.Nil(t, stats.IOErr)
	assert.Equal(t, "00000007000000000000000000000000", stats.IOStats.DeviceID)
	assert.Equal(t, uint64(12288), stats.IOStats.ReadBytes)
	assert.Equal(t, uint64(1), stats.IOStats.WriteOps)
	assert.Equal(t, "cafe", stats.IOStats.FileHandle)
	assert.Equal(t, time.Second+500*time.Nanosecond, stats.IOStats.Read.TotalBusyTime)
	assert.Equal(t, 2*time.Second, stats.IOStats.Duration)

	ioerr := reports[1]
	assert.Equal(t, KindIOErr, ioerr.Kind)
	require.NotNil(t, ioerr.IOErr)
	assert.Equal(t, []DeviceError{{
		DeviceID: "00000007000000000000000000000000",
		Status:   "NFS4ERR_NXIO",
		Op:       "WRITE",
	}}, ioerr.IOErr.Errors)
	assert.NotEqual(t, stats.ID, ioerr.ID)
}

func TestReportsFromEmptyLayoutReturn(t *testing.T) {
	reports := ReportsFromLayoutReturn(netip.Addr{}, &xdr.FlexLayoutReturn{}, time.Now())
	assert.Empty(t, reports)
}

func TestReporterFansOutToAllSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	reporter := NewReporter(ReporterConfig{Sinks: []events.Sink{a, b}})

	reporter.ReportLayoutReturn(netip.MustParseAddr("192.0.2.10"), types.StateID{}, sampleLayoutReturn())
	require.NoError(t, reporter.Close(context.Background()))

	for _, sink := range []*recordingSink{a, b} {
		got := sink.snapshot()
		require.Len(t, got, 2)
		assert.Equal(t, KindIOStats, got[0].Kind)
		assert.Equal(t, KindIOErr, got[1].Kind)
		assert.True(t, sink.closed)
	}
}

func TestReporterRateLimit(t *testing.T) {
	sink := &recordingSink{}
	reporter := NewReporter(ReporterConfig{
		Sinks:   []events.Sink{sink},
		Limiter: ratelimiter.New(0.001, 1),
	})

	assert.True(t, reporter.Report(Report{Client: "a", Kind: KindIOStats}))
	assert.False(t, reporter.Report(Report{Client: "a", Kind: KindIOStats}))
	require.NoError(t, reporter.Close(context.Background()))

	assert.Len(t, sink.snapshot(), 1)
}

func TestReporterClosed(t *testing.T) {
	reporter := NewReporter(ReporterConfig{})
	require.NoError(t, reporter.Close(context.Background()))

	assert.False(t, reporter.Report(Report{Kind: KindIOStats}))
	assert.ErrorIs(t, reporter.Close(context.Background()), ErrReporterClosed)
}

func TestReporterDoesNotBlockOnSlowSink(t *testing.T) {
	slow := &recordingSink{block: make(chan struct{})}
	fast := &recordingSink{}
	reporter := NewReporter(ReporterConfig{Sinks: []events.Sink{slow, fast}})

	for i := 0; i < 100; i++ {
		require.True(t, reporter.Report(Report{Kind: KindIOStats}))
	}

	assert.Eventually(t, func() bool { return len(fast.snapshot()) == 100 },
		time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, reporter.Close(ctx), context.DeadlineExceeded)
	close(slow.block)
}

func TestRetryingSink(t *testing.T) {
	t.Run("eventually delivers", func(t *testing.T) {
		inner := &recordingSink{fail: 2}
		sink := NewRetryingSink(inner, 100, time.Millisecond, 5)

		require.NoError(t, sink.Write(Report{ID: "r1"}))
		assert.Len(t, inner.snapshot(), 1)
	})

	t.Run("drops after max attempts", func(t *testing.T) {
		inner := &recordingSink{fail: 10}
		sink := NewRetryingSink(inner, 100, time.Millisecond, 3)

		require.NoError(t, sink.Write(Report{ID: "r1"}))
		assert.Empty(t, inner.snapshot())

		// the next report starts with a fresh attempt budget
		inner.mu.Lock()
		inner.fail = 0
		inner.mu.Unlock()
		require.NoError(t, sink.Write(Report{ID: "r2"}))
		assert.Len(t, inner.snapshot(), 1)
	})
}

func TestSinksRejectForeignEvents(t *testing.T) {
	assert.Error(t, NewLogSink().Write("not a report"))
	assert.Error(t, NewMetricsSink(nil).Write(42))
}

func TestLogAndMetricsSinks(t *testing.T) {
	reports := ReportsFromLayoutReturn(netip.MustParseAddr("192.0.2.10"), sampleLayoutReturn(), time.Now())
	for _, r := range reports {
		assert.NoError(t, NewLogSink().Write(r))
		assert.NoError(t, NewMetricsSink(nil).Write(&r))
	}
}

// labelRecorder collects the distinct label sets passed to TelemetryMetrics.
type labelRecorder struct {
	mu      sync.Mutex
	ioStats map[[2]string]struct{}
	ioErrs  map[[3]string]struct{}
}

func newLabelRecorder() *labelRecorder {
	return &labelRecorder{
		ioStats: make(map[[2]string]struct{}),
		ioErrs:  make(map[[3]string]struct{}),
	}
}

func (r *labelRecorder) RecordIOStats(deviceID, direction string, bytes, ops uint64, busy time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ioStats[[2]string{deviceID, direction}] = struct{}{}
}

func (r *labelRecorder) RecordIOError(deviceID, op, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ioErrs[[3]string{deviceID, op, status}] = struct{}{}
}

func (r *labelRecorder) RecordDropped(reason string)   {}
func (r *labelRecorder) RecordSinkError(sink string) {}

func TestMetricsSinkLabels(t *testing.T) {
	issued := [types.DeviceIDSize]byte{}
	issued[3] = 7

	rec := newLabelRecorder()
	sink := NewMetricsSink(rec)

	lr := &xdr.FlexLayoutReturn{
		IOStatsReport: []xdr.FlexIOStats{{DeviceID: issued}},
		IOErrReport: []xdr.FlexIOErr{{Errors: []xdr.DeviceError{
			{DeviceID: issued, Status: types.NFS4ErrNXIO, Opnum: types.OpWrite},
		}}},
	}
	for _, r := range ReportsFromLayoutReturn(netip.Addr{}, lr, time.Now()) {
		require.NoError(t, sink.Write(r))
	}

	dev := "00000007000000000000000000000000"
	assert.Contains(t, rec.ioStats, [2]string{dev, "read"})
	assert.Contains(t, rec.ioErrs, [3]string{dev, "WRITE", "NFS4ERR_NXIO"})
}

func TestMetricsSinkBoundsSeries(t *testing.T) {
	const records = 5000

	lr := &xdr.FlexLayoutReturn{}
	errs := make([]xdr.DeviceError, 0, records)
	for i := 0; i < records; i++ {
		var dev [types.DeviceIDSize]byte
		dev[3] = 1
		dev[15] = 1
		dev[8] = byte(i)
		dev[9] = byte(i >> 8)
		lr.IOStatsReport = append(lr.IOStatsReport, xdr.FlexIOStats{DeviceID: dev})
		errs = append(errs, xdr.DeviceError{
			DeviceID: dev,
			Status:   types.Status(100000 + i),
			Opnum:    uint32(10000 + i),
		})
	}
	lr.IOErrReport = []xdr.FlexIOErr{{Errors: errs}}

	rec := newLabelRecorder()
	sink := NewMetricsSink(rec)
	for _, r := range ReportsFromLayoutReturn(netip.MustParseAddr("192.0.2.10"), lr, time.Now()) {
		require.NoError(t, sink.Write(r))
	}

	assert.Len(t, rec.ioStats, 2, "read and write under a single device label")
	assert.Contains(t, rec.ioStats, [2]string{"other", "read"})
	assert.Len(t, rec.ioErrs, 1)
	assert.Contains(t, rec.ioErrs, [3]string{"other", "other", "other"})
}

// fakeS3 captures PutObject calls.
type fakeS3 struct {
	mu   sync.Mutex
	puts map[string][]byte
	err  error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.puts == nil {
		f.puts = make(map[string][]byte)
	}
	f.puts[*params.Bucket+"/"+*params.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink(t *testing.T) {
	client := &fakeS3{}
	sink, err := NewS3Sink(S3SinkConfig{Client: client, Bucket: "pnfs", KeyPrefix: "telemetry"})
	require.NoError(t, err)

	report := Report{
		ID:         "4f9d6a1e-0000-4000-8000-000000000001",
		Kind:       KindIOErr,
		Client:     "192.0.2.10",
		ReceivedAt: time.Date(2024, 5, 1, 23, 30, 0, 0, time.FixedZone("X", -2*3600)),
		IOErr:      &IOErr{Errors: []DeviceError{{DeviceID: "00", Status: "NFS4ERR_IO", Op: "READ"}}},
	}

	key := sink.ObjectKey(report)
	assert.Equal(t, "telemetry/ioerr/2024-05-02/4f9d6a1e-0000-4000-8000-000000000001.json", key)

	require.NoError(t, sink.Write(report))
	body, ok := client.puts["pnfs/"+key]
	require.True(t, ok)

	var decoded Report
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, report.ID, decoded.ID)
	assert.Equal(t, "NFS4ERR_IO", decoded.IOErr.Errors[0].Status)
}

func TestS3SinkErrors(t *testing.T) {
	_, err := NewS3Sink(S3SinkConfig{Bucket: "b"})
	assert.Error(t, err)
	_, err = NewS3Sink(S3SinkConfig{Client: &fakeS3{}})
	assert.Error(t, err)

	sink, err := NewS3Sink(S3SinkConfig{Client: &fakeS3{err: errors.New("503")}, Bucket: "b"})
	require.NoError(t, err)
	assert.Error(t, sink.Write(Report{ID: "x", Kind: KindIOStats}))
}
