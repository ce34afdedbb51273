package options

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
	"solarbridge/cmd/solarbridge/config"
	"solarbridge/pkg/bridge"
	"solarbridge/pkg/control"
	"solarbridge/pkg/diagnostics"
	baseoptions "solarbridge/pkg/generic/options"
	"solarbridge/pkg/metrics"
	"solarbridge/pkg/poll"
	"solarbridge/pkg/protocol/modbusrtu"
	modbusrturuntime "solarbridge/pkg/protocol/modbusrtu/runtime"
	"solarbridge/pkg/publisher"
	"solarbridge/pkg/supervisor"
	"solarbridge/pkg/telemetry"
	"solarbridge/pkg/utils/uuidutil"
	"solarbridge/pkg/watchdog"
)

const (
	EnvBroker       = "SOLARBRIDGE_BROKER"
	EnvMqttUsername = "SOLARBRIDGE_MQTT_USERNAME"
	EnvMqttPassword = "SOLARBRIDGE_MQTT_PASSWORD"
)

type ModbusOptions struct {
	Model    string        `json:"model"`
	Location string        `json:"location"`
	Port     int           `json:"port"`
	BaudRate int           `json:"baudRate"`
	DataBits int           `json:"dataBits"`
	Parity   string        `json:"parity"`
	StopBits string        `json:"stopBits"`
	Slave    uint8         `json:"slave"`
	Timeout  time.Duration `json:"timeout"`
}

type MqttOptions struct {
	Broker          string        `json:"broker"`
	Username        string        `json:"username,omitempty"`
	Password        string        `json:"-"`
	ClientIDPrefix  string        `json:"clientIdPrefix"`
	CurrentTopic    string        `json:"currentTopic"`
	DailyTopic      string        `json:"dailyTopic"`
	AnnounceTopic   string        `json:"announceTopic"`
	AnnouncePayload string        `json:"announcePayload"`
	ControlTopic    string        `json:"controlTopic"`
	Qos             uint8         `json:"qos"`
	ConnectTimeout  time.Duration `json:"connectTimeout"`
	KeepAlive       time.Duration `json:"keepAlive"`
	PublishTimeout  time.Duration `json:"publishTimeout"`
	MaxFailures     int           `json:"maxFailures"`
	ReconnectDelay  time.Duration `json:"reconnectDelay"`
	Restart         string        `json:"restart"`
}

type PollOptions struct {
	Threshold uint          `json:"threshold"`
	Delay     time.Duration `json:"delay"`
}

type LinkOptions struct {
	Interface    string        `json:"interface,omitempty"`
	Attempts     int           `json:"attempts"`
	AttemptDelay time.Duration `json:"attemptDelay"`
}

type WatchdogOptions struct {
	Device  string        `json:"device,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

type ControlOptions struct {
	Output    string `json:"output"`
	LEDPath   string `json:"ledPath,omitempty"`
	ActiveLow bool   `json:"activeLow,omitempty"`
}

type DebugOptions struct {
	Port     string `json:"port,omitempty"`
	BaudRate int    `json:"baudRate,omitempty"`
}

type Options struct {
	Port     string          `json:"port"`
	Wait     time.Duration   `json:"graceful-timeout"`
	CertFile string          `json:"cert-file,omitempty"`
	KeyFile  string          `json:"key-file,omitempty"`
	EnvFile  string          `json:"-"`
	Modbus   ModbusOptions   `json:"modbus"`
	Mqtt     MqttOptions     `json:"mqtt"`
	Poll     PollOptions     `json:"poll"`
	Link     LinkOptions     `json:"link"`
	Watchdog WatchdogOptions `json:"watchdog"`
	Control  ControlOptions  `json:"control"`
	Debug    DebugOptions    `json:"debug"`
	baseoptions.BaseOptions
}

const (
	_defaultPort         = "32200"
	_defaultWait         = 15 * time.Second
	_defaultBroker       = "tcp://192.168.1.10:1883"
	_defaultCurrentTopic = "/home/backyard/solar_current"
	_defaultDailyTopic   = "/home/backyard/solar_daily"
	_defaultConnect      = 10 * time.Second
	_defaultKeepAlive    = 30 * time.Second
)

func NewDefaultOptions() *Options {
	return &Options{
		Port: _defaultPort,
		Wait: _defaultWait,
		Modbus: ModbusOptions{
			Model:    modbusrturuntime.ModelRtu,
			Location: modbusrturuntime.DefaultLocation,
			Port:     modbusrturuntime.DefaultPort,
			BaudRate: modbusrturuntime.DefaultBaudRate,
			DataBits: modbusrturuntime.DefaultDataBits,
			Parity:   modbusrturuntime.ParityToString[modbusrturuntime.NoParity],
			StopBits: modbusrturuntime.StopBitsToString[modbusrturuntime.OneStopBit],
			Slave:    modbusrturuntime.DefaultSlave,
			Timeout:  modbusrturuntime.DefaultTimeout,
		},
		Mqtt: MqttOptions{
			Broker:          _defaultBroker,
			ClientIDPrefix:  supervisor.DefaultClientIDPrefix,
			CurrentTopic:    _defaultCurrentTopic,
			DailyTopic:      _defaultDailyTopic,
			AnnounceTopic:   supervisor.DefaultAnnounceTopic,
			AnnouncePayload: supervisor.DefaultAnnouncePayload,
			ControlTopic:    supervisor.DefaultControlTopic,
			ConnectTimeout:  _defaultConnect,
			KeepAlive:       _defaultKeepAlive,
			PublishTimeout:  publisher.DefaultPublishTimeout,
			MaxFailures:     supervisor.DefaultMaxSessionFailures,
			ReconnectDelay:  supervisor.DefaultReconnectDelay,
			Restart:         "exit",
		},
		Poll: PollOptions{
			Threshold: poll.DefaultThreshold,
			Delay:     bridge.DefaultLoopDelay,
		},
		Link: LinkOptions{
			Attempts:     supervisor.DefaultLinkAttempts,
			AttemptDelay: supervisor.DefaultLinkAttemptDelay,
		},
		Control: ControlOptions{
			Output: control.OutputLog,
		},
		Debug: DebugOptions{
			BaudRate: diagnostics.DefaultBaudRate,
		},
		BaseOptions: baseoptions.NewDefaultBaseOptions(),
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Port, "port", "P", o.Port, "Port of the status server, empty disables it")
	fs.DurationVar(&o.Wait, "graceful-timeout", o.Wait, "The duration for which the server gracefully wait for existing connections to finish - e.g. 15s or 1m")
	fs.StringVar(&o.CertFile, "cert-file", o.CertFile, "TLS certificate of the status server")
	fs.StringVar(&o.KeyFile, "key-file", o.KeyFile, "TLS key of the status server")
	fs.StringVar(&o.EnvFile, "env-file", o.EnvFile, "Dotenv file providing "+EnvBroker+", "+EnvMqttUsername+" and "+EnvMqttPassword)

	fs.StringVar(&o.Modbus.Model, "modbus-model", o.Modbus.Model, "Modbus transport: modbusRtu, modbusTcp or modbusRtuOverTcp")
	fs.StringVar(&o.Modbus.Location, "modbus-location", o.Modbus.Location, "Serial device, or host for the tcp transports")
	fs.IntVar(&o.Modbus.Port, "modbus-port", o.Modbus.Port, "TCP port for the tcp transports")
	fs.IntVar(&o.Modbus.BaudRate, "modbus-baud-rate", o.Modbus.BaudRate, "Serial baud rate")
	fs.IntVar(&o.Modbus.DataBits, "modbus-data-bits", o.Modbus.DataBits, "Serial data bits")
	fs.StringVar(&o.Modbus.Parity, "modbus-parity", o.Modbus.Parity, "Serial parity: noParity, oddParity or evenParity")
	fs.StringVar(&o.Modbus.StopBits, "modbus-stop-bits", o.Modbus.StopBits, "Serial stop bits: 1 or 2")
	fs.Uint8Var(&o.Modbus.Slave, "modbus-slave", o.Modbus.Slave, "Slave address of the charge controller")
	fs.DurationVar(&o.Modbus.Timeout, "modbus-timeout", o.Modbus.Timeout, "Per transaction timeout")

	fs.StringVar(&o.Mqtt.Broker, "mqtt-broker", o.Mqtt.Broker, "Broker URL, e.g. tcp://host:1883")
	fs.StringVar(&o.Mqtt.Username, "mqtt-username", o.Mqtt.Username, "Broker username")
	fs.StringVar(&o.Mqtt.ClientIDPrefix, "mqtt-client-id-prefix", o.Mqtt.ClientIDPrefix, "Prefix of the randomized client id")
	fs.StringVar(&o.Mqtt.CurrentTopic, "mqtt-current-topic", o.Mqtt.CurrentTopic, "Retained topic of the current register set")
	fs.StringVar(&o.Mqtt.DailyTopic, "mqtt-daily-topic", o.Mqtt.DailyTopic, "Retained topic of the daily register set")
	fs.StringVar(&o.Mqtt.AnnounceTopic, "mqtt-announce-topic", o.Mqtt.AnnounceTopic, "Topic of the readiness announcement")
	fs.StringVar(&o.Mqtt.ControlTopic, "mqtt-control-topic", o.Mqtt.ControlTopic, "Topic driving the control output")
	fs.Uint8Var(&o.Mqtt.Qos, "mqtt-qos", o.Mqtt.Qos, "QoS of publishes and the control subscription")
	fs.DurationVar(&o.Mqtt.ConnectTimeout, "mqtt-connect-timeout", o.Mqtt.ConnectTimeout, "Connect acknowledgement timeout")
	fs.DurationVar(&o.Mqtt.PublishTimeout, "mqtt-publish-timeout", o.Mqtt.PublishTimeout, "Publish acknowledgement timeout")
	fs.IntVar(&o.Mqtt.MaxFailures, "mqtt-max-failures", o.Mqtt.MaxFailures, "Consecutive connect failures before restarting")
	fs.StringVar(&o.Mqtt.Restart, "restart", o.Mqtt.Restart, "Restart action after the connect failure budget is spent: exit or reboot")

	fs.UintVar(&o.Poll.Threshold, "poll-threshold", o.Poll.Threshold, "Current polls between two daily polls")
	fs.DurationVar(&o.Poll.Delay, "poll-delay", o.Poll.Delay, "Pause between iterations")

	fs.StringVar(&o.Link.Interface, "link-interface", o.Link.Interface, "Network interface to wait for, empty assumes the link is up")
	fs.IntVar(&o.Link.Attempts, "link-attempts", o.Link.Attempts, "Link checks before proceeding unconfirmed")
	fs.DurationVar(&o.Link.AttemptDelay, "link-attempt-delay", o.Link.AttemptDelay, "Pause between link checks")

	fs.StringVar(&o.Watchdog.Device, "watchdog-device", o.Watchdog.Device, "Hardware watchdog device, e.g. /dev/watchdog")
	fs.DurationVar(&o.Watchdog.Timeout, "watchdog-timeout", o.Watchdog.Timeout, "Watchdog timeout, zero keeps the driver default")

	fs.StringVar(&o.Control.Output, "control-output", o.Control.Output, "Output driven by the control topic: log, led or load")
	fs.StringVar(&o.Control.LEDPath, "control-led-path", o.Control.LEDPath, "sysfs brightness file of the led output")
	fs.BoolVar(&o.Control.ActiveLow, "control-active-low", o.Control.ActiveLow, "Invert the led output")

	fs.StringVar(&o.Debug.Port, "debug-port", o.Debug.Port, "Serial port mirroring the log, must differ from the modbus port")
	fs.IntVar(&o.Debug.BaudRate, "debug-baud-rate", o.Debug.BaudRate, "Baud rate of the debug port")
}

// ApplyEnv loads EnvFile, if any, then lets the process environment override
// the broker and its credentials. Variables already set win over the file.
func (o *Options) ApplyEnv() error {
	if len(o.EnvFile) != 0 {
		if err := godotenv.Load(o.EnvFile); err != nil {
			return errors.Wrapf(err, "load env file %s", o.EnvFile)
		}
	}
	if v, ok := os.LookupEnv(EnvBroker); ok {
		o.Mqtt.Broker = v
	}
	if v, ok := os.LookupEnv(EnvMqttUsername); ok {
		o.Mqtt.Username = v
	}
	if v, ok := os.LookupEnv(EnvMqttPassword); ok {
		o.Mqtt.Password = v
	}
	return nil
}

func (o *Options) TransportConfig() *modbusrturuntime.TransportConfig {
	return &modbusrturuntime.TransportConfig{
		Address: &modbusrturuntime.Address{
			Location: o.Modbus.Location,
			Option: &modbusrturuntime.Option{
				Port:     o.Modbus.Port,
				BaudRate: o.Modbus.BaudRate,
				DataBits: o.Modbus.DataBits,
				Parity:   modbusrturuntime.StringToParity[o.Modbus.Parity],
				StopBits: modbusrturuntime.StringToStopBits[o.Modbus.StopBits],
			},
		},
		Slave:   o.Modbus.Slave,
		Timeout: o.Modbus.Timeout,
	}
}

func (o *Options) SupervisorConfig(instanceID string) supervisor.Config {
	c := supervisor.DefaultConfig()
	c.ClientIDPrefix = o.Mqtt.ClientIDPrefix
	c.InstanceID = instanceID
	c.AnnounceTopic = o.Mqtt.AnnounceTopic
	c.AnnouncePayload = o.Mqtt.AnnouncePayload
	c.ControlTopic = o.Mqtt.ControlTopic
	c.Qos = o.Mqtt.Qos
	c.LinkAttempts = o.Link.Attempts
	c.LinkAttemptDelay = o.Link.AttemptDelay
	c.MaxSessionFailures = o.Mqtt.MaxFailures
	c.ReconnectDelay = o.Mqtt.ReconnectDelay
	c.PublishTimeout = o.Mqtt.PublishTimeout
	return c
}

// Config opens the watchdog, the debug port and the modbus reader, and wires
// the bridge. Nothing is fed or dialled until the bridge runs.
func (o *Options) Config() (*config.Config, error) {
	c := &config.Config{
		CertFile: o.CertFile,
		KeyFile:  o.KeyFile,
		Metrics:  metrics.New(),
	}
	instanceID := uuidutil.UUID()

	fail := func(err error) (*config.Config, error) {
		for i := len(c.Closers) - 1; i >= 0; i-- {
			_ = c.Closers[i].Close()
		}
		return nil, err
	}

	if len(o.Debug.Port) != 0 {
		sink, err := diagnostics.Open(o.Debug.Port, o.Debug.BaudRate)
		if err != nil {
			return fail(err)
		}
		sink.Mirror()
		c.Closers = append(c.Closers, sink)
	}

	var feeder watchdog.Feeder = watchdog.NewNopFeeder()
	if len(o.Watchdog.Device) != 0 {
		device, err := watchdog.OpenDevice(o.Watchdog.Device, o.Watchdog.Timeout)
		if err != nil {
			return fail(err)
		}
		feeder = device
	}

	reader, err := modbusrtu.NewReader(o.Modbus.Model, o.TransportConfig())
	if err != nil {
		_ = feeder.Close()
		return fail(err)
	}
	// reader before feeder: the magic close must come last
	c.Closers = append(c.Closers, reader, feeder)

	output, err := control.NewOutput(o.Control.Output, o.Control.LEDPath, o.Control.ActiveLow, reader)
	if err != nil {
		return fail(err)
	}
	c.Output = output

	var link supervisor.Link = supervisor.StaticLink{}
	if len(o.Link.Interface) != 0 {
		link = supervisor.NewInterfaceLink(o.Link.Interface)
	}
	dialer := &supervisor.PahoDialer{
		Broker:         o.Mqtt.Broker,
		Username:       o.Mqtt.Username,
		Password:       o.Mqtt.Password,
		ConnectTimeout: o.Mqtt.ConnectTimeout,
		KeepAlive:      o.Mqtt.KeepAlive,
	}
	newRestarter, ok := supervisor.Restarters[o.Mqtt.Restart]
	if !ok {
		return fail(errors.Errorf("unknown restart action %q", o.Mqtt.Restart))
	}
	sup := supervisor.NewSupervisor(o.SupervisorConfig(instanceID), link, dialer, newRestarter(), feeder,
		supervisor.WithControlHandler(control.NewHandler(output, c.Metrics)),
		supervisor.WithMetrics(c.Metrics),
	)
	c.Supervisor = sup

	pub := publisher.NewPublisher(sup, publisher.Topics{Current: o.Mqtt.CurrentTopic, Daily: o.Mqtt.DailyTopic},
		publisher.WithQos(o.Mqtt.Qos),
		publisher.WithTimeout(o.Mqtt.PublishTimeout),
		publisher.WithMetrics(c.Metrics),
	)

	c.Bridge = bridge.NewBridge(sup, poll.NewScheduler(o.Poll.Threshold), telemetry.NewAggregator(reader, feeder, sup), pub, feeder,
		bridge.WithDelay(o.Poll.Delay),
		bridge.WithMetrics(c.Metrics),
		bridge.WithInstanceID(instanceID),
	)

	klog.V(1).InfoS("Bridge configured", "instanceId", instanceID, "model", o.Modbus.Model,
		"location", o.Modbus.Location, "broker", o.Mqtt.Broker, "watchdog", o.Watchdog.Device)
	return c, nil
}
