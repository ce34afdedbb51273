package modbusrtu

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"solarbridge/pkg/protocol/modbusrtu/model"
	modbusrturuntime "solarbridge/pkg/protocol/modbusrtu/runtime"
)

// Result is the outcome of one register read. Value is only meaningful when
// Err is nil.
type Result struct {
	Value uint16
	Err   error
}

func (r Result) Ok() bool {
	return r.Err == nil
}

// Reader issues single holding-register reads against one slave. Calls are
// serialized so polling and load-control writes never share the line
// mid-transaction.
type Reader struct {
	mux       sync.Mutex
	model     string
	modeler   model.ModbusModeler
	config    *modbusrturuntime.TransportConfig
	transport modbusrturuntime.Transport
	closed    bool
}

func NewReader(modelName string, config *modbusrturuntime.TransportConfig) (*Reader, error) {
	modeler, ok := model.ModbusModelers[modelName]
	if !ok {
		return nil, errors.Wrapf(modbusrturuntime.ErrUnknownModel, "%q", modelName)
	}
	return newReader(modelName, modeler, config), nil
}

func newReader(modelName string, modeler model.ModbusModeler, config *modbusrturuntime.TransportConfig) *Reader {
	return &Reader{
		model:   modelName,
		modeler: modeler,
		config:  config,
	}
}

// Read performs exactly one function 0x03 read of length 1.
func (r *Reader) Read(ctx context.Context, address uint16) Result {
	r.mux.Lock()
	defer r.mux.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{Err: errors.Wrap(modbusrturuntime.ErrTransport, err.Error())}
	}
	t, err := r.connect()
	if err != nil {
		return Result{Err: err}
	}
	value, err := t.ReadHoldingRegister(address)
	if err != nil {
		klog.V(4).InfoS("Failed to read holding register", "address", address, "slave", r.config.Slave, "error", err)
		r.dropOnTransportError(err)
		return Result{Err: err}
	}
	klog.V(5).InfoS("Succeed to read holding register", "address", address, "value", value)
	return Result{Value: value}
}

func (r *Reader) WriteRegister(ctx context.Context, address uint16, value uint16) error {
	r.mux.Lock()
	defer r.mux.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.Wrap(modbusrturuntime.ErrTransport, err.Error())
	}
	t, err := r.connect()
	if err != nil {
		return err
	}
	if err = t.WriteSingleRegister(address, value); err != nil {
		klog.V(2).InfoS("Failed to write holding register", "address", address, "value", value, "error", err)
		r.dropOnTransportError(err)
		return err
	}
	klog.V(4).InfoS("Succeed to write holding register", "address", address, "value", value)
	return nil
}

func (r *Reader) Close() error {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.closed = true
	if r.transport == nil {
		return nil
	}
	err := r.transport.Close()
	r.transport = nil
	return err
}

func (r *Reader) connect() (modbusrturuntime.Transport, error) {
	if r.closed {
		return nil, modbusrturuntime.ErrReaderClosed
	}
	if r.transport != nil {
		return r.transport, nil
	}
	t, err := r.modeler.NewTransport(r.config)
	if err != nil {
		klog.V(2).InfoS("Failed to open modbus transport", "model", r.model, "location", r.config.Address.Location, "error", err)
		return nil, err
	}
	klog.V(1).InfoS("Opened modbus transport", "model", r.model, "location", r.config.Address.Location, "slave", r.config.Slave)
	r.transport = t
	return t, nil
}

// A transport failure may leave a half-read frame on the line, so the next
// transaction starts on a fresh connection.
func (r *Reader) dropOnTransportError(err error) {
	if !errors.Is(err, modbusrturuntime.ErrTransport) || r.transport == nil {
		return
	}
	if cerr := r.transport.Close(); cerr != nil {
		klog.V(4).InfoS("Failed to close modbus transport", "error", cerr)
	}
	r.transport = nil
}
