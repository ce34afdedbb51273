package options

import (
	"net/url"
	"strconv"

	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"
	"solarbridge/pkg/control"
	"solarbridge/pkg/diagnostics"
	"solarbridge/pkg/poll"
	"solarbridge/pkg/protocol/modbusrtu/model"
	modbusrturuntime "solarbridge/pkg/protocol/modbusrtu/runtime"
	"solarbridge/pkg/supervisor"
)

// listPorts is swapped in tests.
var listPorts = diagnostics.Ports

func Validate(o *Options) []error {
	var errs []error
	for _, err := range validateFields(o) {
		errs = append(errs, err)
	}
	if err := o.BaseOptions.ValidateAndApply(); err != nil {
		errs = append(errs, err)
	}
	warnMissingPorts(o)
	return errs
}

func validateFields(o *Options) field.ErrorList {
	var allErrs field.ErrorList

	if len(o.Port) != 0 {
		if port, err := strconv.Atoi(o.Port); err != nil || port <= 0 || port > 65535 {
			allErrs = append(allErrs, field.Invalid(field.NewPath("port"), o.Port, "must be a TCP port or empty"))
		}
	}
	if (len(o.CertFile) == 0) != (len(o.KeyFile) == 0) {
		allErrs = append(allErrs, field.Required(field.NewPath("key-file"), "cert-file and key-file go together"))
	}

	allErrs = append(allErrs, validateModbus(&o.Modbus, field.NewPath("modbus"))...)
	allErrs = append(allErrs, validateMqtt(&o.Mqtt, field.NewPath("mqtt"))...)

	pollPath := field.NewPath("poll")
	if o.Poll.Threshold < poll.MinThreshold {
		allErrs = append(allErrs, field.Invalid(pollPath.Child("threshold"), o.Poll.Threshold, "must be at least 2"))
	}
	if o.Poll.Delay < 0 {
		allErrs = append(allErrs, field.Invalid(pollPath.Child("delay"), o.Poll.Delay.String(), "must not be negative"))
	}

	linkPath := field.NewPath("link")
	if o.Link.Attempts < 1 {
		allErrs = append(allErrs, field.Invalid(linkPath.Child("attempts"), o.Link.Attempts, "must be at least 1"))
	}

	if o.Watchdog.Timeout < 0 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("watchdog", "timeout"), o.Watchdog.Timeout.String(), "must not be negative"))
	}

	controlPath := field.NewPath("control")
	switch o.Control.Output {
	case control.OutputLog, control.OutputLoad:
	case control.OutputLED:
		if len(o.Control.LEDPath) == 0 {
			allErrs = append(allErrs, field.Required(controlPath.Child("ledPath"), "led output needs a sysfs path"))
		}
	default:
		allErrs = append(allErrs, field.NotSupported(controlPath.Child("output"), o.Control.Output,
			[]string{control.OutputLog, control.OutputLED, control.OutputLoad}))
	}

	if len(o.Debug.Port) != 0 && o.Modbus.Model == modbusrturuntime.ModelRtu && o.Debug.Port == o.Modbus.Location {
		allErrs = append(allErrs, field.Forbidden(field.NewPath("debug", "port"), diagnostics.ErrSamePort.Error()))
	}
	return allErrs
}

func validateModbus(m *ModbusOptions, path *field.Path) field.ErrorList {
	var allErrs field.ErrorList
	if _, ok := model.ModbusModelers[m.Model]; !ok {
		allErrs = append(allErrs, field.NotSupported(path.Child("model"), m.Model,
			[]string{modbusrturuntime.ModelRtu, modbusrturuntime.ModelTcp, modbusrturuntime.ModelRtuOverTcp}))
	}
	if len(m.Location) == 0 {
		allErrs = append(allErrs, field.Required(path.Child("location"), ""))
	}
	if m.Model == modbusrturuntime.ModelRtu {
		if m.BaudRate <= 0 {
			allErrs = append(allErrs, field.Invalid(path.Child("baudRate"), m.BaudRate, "must be positive"))
		}
		if m.DataBits < 5 || m.DataBits > 8 {
			allErrs = append(allErrs, field.Invalid(path.Child("dataBits"), m.DataBits, "must be between 5 and 8"))
		}
		if _, ok := modbusrturuntime.StringToParity[m.Parity]; !ok {
			allErrs = append(allErrs, field.NotSupported(path.Child("parity"), m.Parity, parities()))
		}
		if _, ok := modbusrturuntime.StringToStopBits[m.StopBits]; !ok {
			allErrs = append(allErrs, field.NotSupported(path.Child("stopBits"), m.StopBits, []string{"1", "2"}))
		}
	} else if m.Port <= 0 || m.Port > 65535 {
		allErrs = append(allErrs, field.Invalid(path.Child("port"), m.Port, "must be a TCP port"))
	}
	if m.Slave < 1 || m.Slave > 247 {
		allErrs = append(allErrs, field.Invalid(path.Child("slave"), m.Slave, "must be between 1 and 247"))
	}
	if m.Timeout <= 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("timeout"), m.Timeout.String(), "must be positive"))
	}
	return allErrs
}

func validateMqtt(m *MqttOptions, path *field.Path) field.ErrorList {
	var allErrs field.ErrorList
	if len(m.Broker) == 0 {
		allErrs = append(allErrs, field.Required(path.Child("broker"), ""))
	} else if u, err := url.Parse(m.Broker); err != nil || len(u.Scheme) == 0 || len(u.Host) == 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("broker"), m.Broker, "must be a URL such as tcp://host:1883"))
	}
	for name, topic := range map[string]string{
		"currentTopic": m.CurrentTopic,
		"dailyTopic":   m.DailyTopic,
		"controlTopic": m.ControlTopic,
	} {
		if len(topic) == 0 {
			allErrs = append(allErrs, field.Required(path.Child(name), ""))
		}
	}
	if len(m.CurrentTopic) != 0 && m.CurrentTopic == m.DailyTopic {
		allErrs = append(allErrs, field.Duplicate(path.Child("dailyTopic"), m.DailyTopic))
	}
	if m.Qos > 2 {
		allErrs = append(allErrs, field.Invalid(path.Child("qos"), m.Qos, "must be 0, 1 or 2"))
	}
	if m.MaxFailures < 1 {
		allErrs = append(allErrs, field.Invalid(path.Child("maxFailures"), m.MaxFailures, "must be at least 1"))
	}
	if m.PublishTimeout <= 0 {
		allErrs = append(allErrs, field.Invalid(path.Child("publishTimeout"), m.PublishTimeout.String(), "must be positive"))
	}
	if _, ok := supervisor.Restarters[m.Restart]; !ok {
		allErrs = append(allErrs, field.NotSupported(path.Child("restart"), m.Restart, []string{"exit", "reboot"}))
	}
	return allErrs
}

// warnMissingPorts only logs: usb adapters may enumerate after start-up and
// the reader opens lazily.
func warnMissingPorts(o *Options) {
	if o.Modbus.Model != modbusrturuntime.ModelRtu && len(o.Debug.Port) == 0 {
		return
	}
	ports, err := listPorts()
	if err != nil {
		klog.V(2).InfoS("Failed to list serial ports", "err", err)
		return
	}
	present := make(map[string]bool, len(ports))
	for _, p := range ports {
		present[p] = true
	}
	if o.Modbus.Model == modbusrturuntime.ModelRtu && !present[o.Modbus.Location] {
		klog.InfoS("Modbus serial port not present yet", "port", o.Modbus.Location, "available", ports)
	}
	if len(o.Debug.Port) != 0 && !present[o.Debug.Port] {
		klog.InfoS("Debug serial port not present", "port", o.Debug.Port, "available", ports)
	}
}

func parities() []string {
	return []string{
		modbusrturuntime.ParityToString[modbusrturuntime.NoParity],
		modbusrturuntime.ParityToString[modbusrturuntime.OddParity],
		modbusrturuntime.ParityToString[modbusrturuntime.EvenParity],
	}
}
