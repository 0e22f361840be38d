package device

import (
	"fmt"
	"math"

	"smarthome-gauges/internal/gauge"
)

const (
	statusEnabled  = "Gauge enabled"
	statusDisabled = "Gauge disabled"
	statusFire     = "Gauge caught fire"
)

// Machine is the operator-facing state machine of one simulated sensor. It is
// not safe for concurrent use; a Device owns it.
type Machine interface {
	Prompt() string
	Parse(line string) (Command, error)
	// Apply performs cmd and returns the status line to show and whether the
	// encoded state changed.
	Apply(cmd Command) (status string, changed bool)
	// Report is called on every report tick and says whether a reading should
	// be transmitted.
	Report() bool
	Gauge() gauge.Gauge
}

type FireAlarmMachine struct {
	alarm *gauge.FireAlarm
}

func NewFireAlarmMachine(name string) (*FireAlarmMachine, error) {
	a, err := gauge.NewFireAlarm(name, gauge.FireAlarmDisabled)
	if err != nil {
		return nil, err
	}
	return &FireAlarmMachine{alarm: a}, nil
}

func (m *FireAlarmMachine) Prompt() string {
	return "P - enable/disable, F - trigger"
}

func (m *FireAlarmMachine) Parse(line string) (Command, error) {
	return ParseFireAlarmCommand(line)
}

func (m *FireAlarmMachine) Apply(cmd Command) (string, bool) {
	switch cmd.Op {
	case OpToggle:
		if m.alarm.State() == gauge.FireAlarmDisabled {
			m.alarm.SetState(gauge.FireAlarmEnabled)
			return statusEnabled, true
		}
		m.alarm.SetState(gauge.FireAlarmDisabled)
		return statusDisabled, true
	case OpTrigger:
		switch m.alarm.State() {
		case gauge.FireAlarmDisabled:
			return statusDisabled, false
		case gauge.FireAlarmEnabled:
			m.alarm.SetState(gauge.FireAlarmOnAlert)
			return statusFire, true
		}
		return "", false
	default:
		return "Invalid input", false
	}
}

func (m *FireAlarmMachine) Report() bool { return false }

func (m *FireAlarmMachine) Gauge() gauge.Gauge { return m.alarm }

type ThermometerMachine struct {
	therm   *gauge.TemperatureGauge
	celsius float32
}

func NewThermometerMachine(name string, initial float32) (*ThermometerMachine, error) {
	g, err := gauge.NewTemperatureGauge(name, gauge.DisabledTemperature())
	if err != nil {
		return nil, err
	}
	return &ThermometerMachine{therm: g, celsius: roundTenth(initial)}, nil
}

func (m *ThermometerMachine) Prompt() string {
	return "P - enable/disable, K/J - degrees up/down by 1.0, k/j - degrees up/down by 0.1"
}

func (m *ThermometerMachine) Parse(line string) (Command, error) {
	return ParseThermometerCommand(line)
}

// Celsius is the current simulated temperature, which may differ from the last
// transmitted reading.
func (m *ThermometerMachine) Celsius() float32 {
	return m.celsius
}

func (m *ThermometerMachine) disabled() bool {
	return m.therm.State().Mode == gauge.TemperatureDisabled
}

func (m *ThermometerMachine) Apply(cmd Command) (string, bool) {
	switch cmd.Op {
	case OpToggle:
		if m.disabled() {
			m.therm.SetState(gauge.EnabledTemperature())
			return statusEnabled, true
		}
		m.therm.SetState(gauge.DisabledTemperature())
		return statusDisabled, true
	case OpAdjust:
		if m.disabled() {
			return statusDisabled, false
		}
		// The new value goes out with the next report.
		m.celsius = roundTenth(m.celsius + cmd.Delta)
		return fmt.Sprintf("Set temperature: %v", m.celsius), false
	default:
		return "Invalid input", false
	}
}

func (m *ThermometerMachine) Report() bool {
	if m.disabled() {
		return false
	}
	m.therm.SetState(gauge.ReadingTemperature(m.celsius))
	return true
}

func (m *ThermometerMachine) Gauge() gauge.Gauge { return m.therm }

func roundTenth(c float32) float32 {
	return float32(math.Round(float64(c)*10) / 10)
}
