package options

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOptions struct {
	Broker string `json:"broker"`
	Slave  int    `json:"slave"`
	BaseOptions
}

func (o *testOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Broker, "broker", o.Broker, "")
	fs.IntVar(&o.Slave, "slave", o.Slave, "")
}

func newTestOptions() *testOptions {
	return &testOptions{Broker: "tcp://default:1883", Slave: 1, BaseOptions: NewDefaultBaseOptions()}
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseAndApplyConfigFileFlagsWin(t *testing.T) {
	o := newTestOptions()
	o.ConfigFile = writeConfig(t, "broker: tcp://file:1883\nslave: 16\n")

	require.NoError(t, ParseAndApplyConfigFile(o, []string{"--slave=32", "--config", o.ConfigFile}))
	assert.Equal(t, "tcp://file:1883", o.Broker)
	assert.Equal(t, 32, o.Slave)
}

func TestParseAndApplyConfigFileWithoutFile(t *testing.T) {
	o := newTestOptions()
	require.NoError(t, ParseAndApplyConfigFile(o, nil))
	assert.Equal(t, "tcp://default:1883", o.Broker)
}

func TestParseAndApplyConfigFileRejectsUnknownKeys(t *testing.T) {
	o := newTestOptions()
	o.ConfigFile = writeConfig(t, "brokr: tcp://file:1883\n")
	assert.Error(t, ParseAndApplyConfigFile(o, nil))
}

func TestParseAndApplyConfigFileMissing(t *testing.T) {
	o := newTestOptions()
	o.ConfigFile = filepath.Join(t.TempDir(), "absent.yaml")
	assert.Error(t, ParseAndApplyConfigFile(o, nil))
}

func TestWriteDefaultConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDefaultConfig(&buf, newTestOptions()))
	out := buf.String()
	assert.Contains(t, out, "# Default configuration")
	assert.Contains(t, out, "broker: tcp://default:1883")
	assert.Contains(t, out, "slave: 1")
	assert.NotContains(t, out, "ConfigFile")
}
