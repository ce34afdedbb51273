package options

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"k8s.io/component-base/config"
	"k8s.io/component-base/logs"
	"k8s.io/component-base/logs/registry"
)

// exposedLoggingFlags are the component-base logging flags left visible in
// --help; the rest are bound but hidden.
var exposedLoggingFlags = map[string]bool{
	"v":              true,
	"vmodule":        true,
	"logging-format": true,
}

// LoggingConfiguration is the subset of the component-base logging options
// the bridge reads from its config file: format, verbosity and vmodule.
type LoggingConfiguration struct {
	config.LoggingConfiguration
}

func NewDefaultLoggingConfiguration() LoggingConfiguration {
	return LoggingConfiguration{
		config.LoggingConfiguration{
			Format:    "text",
			Verbosity: 2,
		},
	}
}

func logFormats() []string {
	return registry.LogRegistry.List()
}

// Validate checks the format against the registered log formats without
// touching the global logger.
func (l *LoggingConfiguration) Validate() error {
	for _, f := range logFormats() {
		if f == l.Format {
			return nil
		}
	}
	return errors.Errorf("unsupported log format %q, permitted formats: %s", l.Format, strings.Join(logFormats(), ", "))
}

func (l *LoggingConfiguration) ValidateAndApply() error {
	if err := l.Validate(); err != nil {
		return err
	}
	o := logs.NewOptions()
	o.Config.Format = l.Format
	o.Config.Verbosity = l.Verbosity
	o.Config.VModule = l.VModule
	return o.ValidateAndApply()
}

// loggingFile is the on-disk shape; the embedded component-base struct
// carries fields the bridge does not configure.
type loggingFile struct {
	Format    string                      `json:"format"`
	Verbosity config.VerbosityLevel       `json:"verbosity"`
	VModule   config.VModuleConfiguration `json:"vmodule,omitempty"`
}

func (l *LoggingConfiguration) MarshalJSON() ([]byte, error) {
	return json.Marshal(&loggingFile{
		Format:    l.Format,
		Verbosity: l.Verbosity,
		VModule:   l.VModule,
	})
}

func (l *LoggingConfiguration) UnmarshalJSON(bytes []byte) error {
	in := loggingFile{
		Format:    l.Format,
		Verbosity: l.Verbosity,
		VModule:   l.VModule,
	}
	if err := json.Unmarshal(bytes, &in); err != nil {
		return err
	}
	l.Format, l.Verbosity, l.VModule = in.Format, in.Verbosity, in.VModule
	return nil
}

func (l *LoggingConfiguration) BindLoggingFlags(fs *pflag.FlagSet) {
	logsFs := pflag.NewFlagSet("", pflag.ContinueOnError)
	logs.BindLoggingFlags(&l.LoggingConfiguration, logsFs)
	logsFs.VisitAll(func(f *pflag.Flag) {
		if !exposedLoggingFlags[f.Name] {
			f.Hidden = true
			return
		}
		if f.Name == "logging-format" {
			f.Usage = fmt.Sprintf("Sets the log format. Permitted formats: %q.", logFormats())
		}
	})
	fs.AddFlagSet(logsFs)
}
