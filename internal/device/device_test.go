package device

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarthome-gauges/internal/config"
	"smarthome-gauges/internal/gauge"
)

type fakeTransmitter struct {
	mu     sync.Mutex
	frames [][]byte
	fail   int
}

func (f *fakeTransmitter) Transmit(_ context.Context, frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail > 0 {
		f.fail--
		return errors.New("connection refused")
	}
	f.frames = append(f.frames, append([]byte(nil), frame...))
	return nil
}

func (f *fakeTransmitter) decoded(t *testing.T) []gauge.Classified {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gauge.Classified, 0, len(f.frames))
	for _, b := range f.frames {
		c, err := gauge.Decode(b)
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func (f *fakeTransmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runLines feeds every line to a fresh device and returns once it has
// processed all of them.
func runLines(t *testing.T, m Machine, tx Transmitter, lines ...string) (*Device, string) {
	t.Helper()
	var out bytes.Buffer
	d := New(m, tx, Config{Out: &out, Logger: quietLogger()})

	in := make(chan string)
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), in) }()
	for _, l := range lines {
		in <- l
	}
	close(in)
	require.NoError(t, <-done)
	return d, out.String()
}

func statusLines(out, prompt string) []string {
	var got []string
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		if l != prompt {
			got = append(got, l)
		}
	}
	return got
}

func TestFireAlarmDevice_Transitions(t *testing.T) {
	m, err := NewFireAlarmMachine("Kitchen")
	require.NoError(t, err)
	tx := &fakeTransmitter{}

	d, out := runLines(t, m, tx, "f", "P", "F", "F", "p", "hello", "P")
	assert.False(t, d.Dirty())

	assert.Equal(t, []string{
		"Gauge disabled",
		"Gauge enabled",
		"Gauge caught fire",
		"Gauge disabled",
		"Invalid input",
		"Gauge enabled",
	}, statusLines(out, m.Prompt()))

	var states []string
	for _, c := range tx.decoded(t) {
		states = append(states, c.String())
	}
	assert.Equal(t, []string{
		"Kitchen enabled",
		"Kitchen caught fire",
		"Kitchen disabled",
		"Kitchen enabled",
	}, states)
}

func TestFireAlarmMachine_ToggleFromAlertDisables(t *testing.T) {
	m, err := NewFireAlarmMachine("Hall")
	require.NoError(t, err)

	m.Apply(Command{Op: OpToggle})
	m.Apply(Command{Op: OpTrigger})
	status, changed := m.Apply(Command{Op: OpTrigger})
	assert.Equal(t, "", status)
	assert.False(t, changed)

	status, changed = m.Apply(Command{Op: OpToggle})
	assert.Equal(t, "Gauge disabled", status)
	assert.True(t, changed)
	assert.Equal(t, gauge.FireAlarmDisabled, m.Gauge().(*gauge.FireAlarm).State())
}

func TestDevice_FailedTransmitIsRetried(t *testing.T) {
	m, err := NewFireAlarmMachine("Kitchen")
	require.NoError(t, err)
	tx := &fakeTransmitter{fail: 1}

	var out bytes.Buffer
	d := New(m, tx, Config{Out: &out, Logger: quietLogger()})
	in := make(chan string)
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), in) }()

	in <- "P"
	// the next line is handled only after the failed flush
	in <- "?"
	close(in)
	require.NoError(t, <-done)

	assert.False(t, d.Dirty())
	got := tx.decoded(t)
	require.Len(t, got, 1)
	assert.Equal(t, "Kitchen enabled", got[0].String())
}

func TestDevice_PendingChangeSurvivesFailures(t *testing.T) {
	m, err := NewFireAlarmMachine("Kitchen")
	require.NoError(t, err)
	tx := &fakeTransmitter{fail: 10}

	d, _ := runLines(t, m, tx, "P", "x")
	assert.True(t, d.Dirty())
	assert.Equal(t, 0, tx.count())
}

func TestThermometerDevice_Adjustments(t *testing.T) {
	m, err := NewThermometerMachine("Den", 36.0)
	require.NoError(t, err)
	tx := &fakeTransmitter{}

	_, out := runLines(t, m, tx, "K", "P", "K", "k", "j", "j", "J", "x", "p", "k")
	assert.Equal(t, []string{
		"Gauge disabled",
		"Gauge enabled",
		"Set temperature: 37",
		"Set temperature: 37.1",
		"Set temperature: 37",
		"Set temperature: 36.9",
		"Set temperature: 35.9",
		"Invalid input",
		"Gauge disabled",
		"Gauge disabled",
	}, statusLines(out, m.Prompt()))
	assert.Equal(t, float32(35.9), m.Celsius())

	var states []string
	for _, c := range tx.decoded(t) {
		states = append(states, c.String())
	}
	assert.Equal(t, []string{"Den temperature gauge enabled", "Den temperature gauge disabled"}, states)
}

func TestThermometerDevice_ReportsWhileEnabled(t *testing.T) {
	m, err := NewThermometerMachine("Den", 21.54)
	require.NoError(t, err)
	tx := &fakeTransmitter{}
	d := New(m, tx, Config{ReportInterval: 10 * time.Millisecond, Logger: quietLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, in) }()

	in <- "P"
	require.Eventually(t, func() bool { return tx.count() >= 3 }, 3*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	got := tx.decoded(t)
	assert.Equal(t, "Den temperature gauge enabled", got[0].String())
	reading, ok := got[len(got)-1].(*gauge.TemperatureGauge)
	require.True(t, ok)
	assert.Equal(t, gauge.ReadingTemperature(21.5), reading.State())
}

func TestThermometerDevice_SilentWhileDisabled(t *testing.T) {
	m, err := NewThermometerMachine("Den", 20)
	require.NoError(t, err)
	tx := &fakeTransmitter{}
	d := New(m, tx, Config{ReportInterval: 5 * time.Millisecond, Logger: quietLogger()})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, d.Run(ctx, make(chan string)))
	assert.Equal(t, 0, tx.count())
}

func TestParseCommands(t *testing.T) {
	tests := []struct {
		parse func(string) (Command, error)
		in    string
		want  Command
		err   bool
	}{
		{ParseFireAlarmCommand, "P", Command{Op: OpToggle}, false},
		{ParseFireAlarmCommand, " p\n", Command{Op: OpToggle}, false},
		{ParseFireAlarmCommand, "f", Command{Op: OpTrigger}, false},
		{ParseFireAlarmCommand, "K", Command{}, true},
		{ParseFireAlarmCommand, "", Command{}, true},
		{ParseThermometerCommand, "K", Command{Op: OpAdjust, Delta: 1}, false},
		{ParseThermometerCommand, "J", Command{Op: OpAdjust, Delta: -1}, false},
		{ParseThermometerCommand, "k", Command{Op: OpAdjust, Delta: 0.1}, false},
		{ParseThermometerCommand, "j", Command{Op: OpAdjust, Delta: -0.1}, false},
		{ParseThermometerCommand, "p", Command{Op: OpToggle}, false},
		{ParseThermometerCommand, "F", Command{}, true},
		{ParseThermometerCommand, "KK", Command{}, true},
	}

	for _, tt := range tests {
		got, err := tt.parse(tt.in)
		if tt.err {
			assert.ErrorIs(t, err, ErrInvalidInput, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewMachines_RejectLongNames(t *testing.T) {
	long := strings.Repeat("x", 256)
	_, err := NewFireAlarmMachine(long)
	assert.ErrorIs(t, err, gauge.ErrNameTooLong)
	_, err = NewThermometerMachine(long, 0)
	assert.ErrorIs(t, err, gauge.ErrNameTooLong)
}

func TestTCPTransmitter(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		b, _ := io.ReadAll(conn)
		received <- b
	}()

	alarm, err := gauge.NewFireAlarm("Kitchen", gauge.FireAlarmOnAlert)
	require.NoError(t, err)
	frame := gauge.Encode(alarm)

	tx := TCPTransmitter{Addr: ln.Addr().String(), DialTimeout: time.Second}
	require.NoError(t, tx.Transmit(context.Background(), frame))

	select {
	case b := <-received:
		assert.Equal(t, frame, b)
	case <-time.After(3 * time.Second):
		t.Fatal("frame not received")
	}
}

func TestTCPTransmitter_ConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	err = TCPTransmitter{Addr: addr, DialTimeout: time.Second}.Transmit(context.Background(), []byte{0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect "+addr)
}

func TestReadLines(t *testing.T) {
	var got []string
	for l := range ReadLines(context.Background(), strings.NewReader("P\nF\n\nK")) {
		got = append(got, l)
	}
	assert.Equal(t, []string{"P", "F", "", "K"}, got)
}

func TestRunConsole_FireAlarm(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			b, _ := io.ReadAll(conn)
			conn.Close()
			received <- b
		}
	}()

	m, err := NewFireAlarmMachine("Kitchen")
	require.NoError(t, err)
	cfg := config.Device{GaugeName: "Kitchen", TargetAddress: ln.Addr().String(), ReportInterval: time.Hour, DialTimeout: time.Second}

	var out bytes.Buffer
	require.NoError(t, RunConsole(context.Background(), cfg, m, strings.NewReader("P\nF\n"), &out, quietLogger()))
	assert.Contains(t, out.String(), "Gauge enabled\n")
	assert.Contains(t, out.String(), "Gauge caught fire\n")

	for _, want := range []string{"Kitchen enabled", "Kitchen caught fire"} {
		select {
		case b := <-received:
			c, err := gauge.Decode(b)
			require.NoError(t, err)
			assert.Equal(t, want, c.String())
		case <-time.After(3 * time.Second):
			t.Fatalf("frame %q not received", want)
		}
	}
}
