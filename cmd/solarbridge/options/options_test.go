package options

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/validation/field"
	modbusrturuntime "solarbridge/pkg/protocol/modbusrtu/runtime"
)

func fieldPaths(errs field.ErrorList) []string {
	paths := make([]string, 0, len(errs))
	for _, err := range errs {
		paths = append(paths, err.Field)
	}
	return paths
}

func TestDefaultsAreValid(t *testing.T) {
	assert.Empty(t, validateFields(NewDefaultOptions()))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		modify func(o *Options)
		field  string
	}{
		{"unknown model", func(o *Options) { o.Modbus.Model = "modbusAscii" }, "modbus.model"},
		{"slave zero", func(o *Options) { o.Modbus.Slave = 0 }, "modbus.slave"},
		{"slave too high", func(o *Options) { o.Modbus.Slave = 248 }, "modbus.slave"},
		{"parity", func(o *Options) { o.Modbus.Parity = "N" }, "modbus.parity"},
		{"stop bits", func(o *Options) { o.Modbus.StopBits = "1.5" }, "modbus.stopBits"},
		{"tcp port", func(o *Options) { o.Modbus.Model = modbusrturuntime.ModelTcp; o.Modbus.Port = 0 }, "modbus.port"},
		{"empty broker", func(o *Options) { o.Mqtt.Broker = "" }, "mqtt.broker"},
		{"broker without scheme", func(o *Options) { o.Mqtt.Broker = "localhost" }, "mqtt.broker"},
		{"same topics", func(o *Options) { o.Mqtt.DailyTopic = o.Mqtt.CurrentTopic }, "mqtt.dailyTopic"},
		{"qos", func(o *Options) { o.Mqtt.Qos = 3 }, "mqtt.qos"},
		{"restart", func(o *Options) { o.Mqtt.Restart = "halt" }, "mqtt.restart"},
		{"threshold", func(o *Options) { o.Poll.Threshold = 1 }, "poll.threshold"},
		{"link attempts", func(o *Options) { o.Link.Attempts = 0 }, "link.attempts"},
		{"output", func(o *Options) { o.Control.Output = "relay" }, "control.output"},
		{"led without path", func(o *Options) { o.Control.Output = "led" }, "control.ledPath"},
		{"debug on modbus port", func(o *Options) { o.Debug.Port = o.Modbus.Location }, "debug.port"},
		{"status port", func(o *Options) { o.Port = "http" }, "port"},
		{"cert without key", func(o *Options) { o.CertFile = "server.crt" }, "key-file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewDefaultOptions()
			tt.modify(o)
			assert.Contains(t, fieldPaths(validateFields(o)), tt.field)
		})
	}
}

func TestDebugPortMayMatchTcpHost(t *testing.T) {
	o := NewDefaultOptions()
	o.Modbus.Model = modbusrturuntime.ModelTcp
	o.Modbus.Location = "/dev/ttyS1"
	o.Debug.Port = "/dev/ttyS1"
	assert.Empty(t, validateFields(o))
}

func TestEmptyStatusPortIsAllowed(t *testing.T) {
	o := NewDefaultOptions()
	o.Port = ""
	assert.Empty(t, validateFields(o))
}

func TestFlagsOverrideDefaults(t *testing.T) {
	o := NewDefaultOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--modbus-slave=16",
		"--modbus-parity=evenParity",
		"--poll-threshold=10",
		"--mqtt-broker=tcp://broker:1883",
		"--port=",
	}))
	assert.Equal(t, uint8(16), o.Modbus.Slave)
	assert.Equal(t, uint(10), o.Poll.Threshold)
	assert.Equal(t, "tcp://broker:1883", o.Mqtt.Broker)
	assert.Empty(t, o.Port)

	tc := o.TransportConfig()
	assert.Equal(t, uint8(16), tc.Slave)
	assert.Equal(t, modbusrturuntime.EvenParity, tc.Address.Option.Parity)
	assert.Equal(t, modbusrturuntime.OneStopBit, tc.Address.Option.StopBits)
	assert.Equal(t, modbusrturuntime.DefaultLocation, tc.Address.Location)
}

func TestSupervisorConfig(t *testing.T) {
	o := NewDefaultOptions()
	o.Mqtt.MaxFailures = 4
	o.Link.Attempts = 7
	c := o.SupervisorConfig("abc")
	assert.Equal(t, "abc", c.InstanceID)
	assert.Equal(t, 4, c.MaxSessionFailures)
	assert.Equal(t, 7, c.LinkAttempts)
	assert.Equal(t, "inTopic", c.ControlTopic)
	assert.Equal(t, "outTopic", c.AnnounceTopic)
}

// unsetEnv clears key for the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestApplyEnvFile(t *testing.T) {
	unsetEnv(t, EnvBroker)
	unsetEnv(t, EnvMqttPassword)
	t.Setenv(EnvMqttUsername, "from-env")

	path := filepath.Join(t.TempDir(), "bridge.env")
	require.NoError(t, os.WriteFile(path, []byte(
		EnvBroker+"=tcp://10.0.0.2:1883\n"+
			EnvMqttUsername+"=from-file\n"+
			EnvMqttPassword+"=secret\n"), 0o600))

	o := NewDefaultOptions()
	o.EnvFile = path
	require.NoError(t, o.ApplyEnv())

	assert.Equal(t, "tcp://10.0.0.2:1883", o.Mqtt.Broker)
	assert.Equal(t, "from-env", o.Mqtt.Username)
	assert.Equal(t, "secret", o.Mqtt.Password)
}

func TestApplyEnvMissingFile(t *testing.T) {
	o := NewDefaultOptions()
	o.EnvFile = filepath.Join(t.TempDir(), "missing.env")
	assert.Error(t, o.ApplyEnv())
}

func TestWarnMissingPortsToleratesListFailure(t *testing.T) {
	old := listPorts
	defer func() { listPorts = old }()
	listPorts = func() ([]string, error) { return nil, os.ErrPermission }
	warnMissingPorts(NewDefaultOptions())
}
