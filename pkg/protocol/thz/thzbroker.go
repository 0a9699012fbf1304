package thz

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"thzgateway/pkg/apis/response"
	thz "thzgateway/pkg/protocol/thz/runtime"
	"thzgateway/pkg/runtime"
	"thzgateway/pkg/runtime/constant"
	"time"

	"go.bug.st/serial"
	"k8s.io/klog/v2"
)

/**
THZ 报文 = 头部(2) + 校验(1) + 地址(1~3) + 数据(n) + 尾部(2)
读请求  01 00 + checksum + 寄存器块地址 + 10 03
写请求  01 80 + checksum + 参数地址 + 编码数值 + 10 03
应答帧与请求帧同构, 校验后的数据区经 2B/18 与 10/10 转义
*/

var _ runtime.Broker = (*THZBroker)(nil)

const (
	// initializeTimeout caps the handshake plus firmware probe of a new
	// session.
	initializeTimeout = 10 * time.Second
	defaultBaudRate   = 115200
	defaultDataBits   = 8
)

type THZBroker struct {
	Device     *thz.THZDevice
	Session    *thz.Session
	Profile    *thz.FirmwareProfile
	ExitCh     chan struct{}
	VariableCh chan *runtime.ParseVariableResult
	CanCollect bool
}

func NewBroker(d runtime.Device) (runtime.Broker, chan *runtime.ParseVariableResult, error) {
	device, ok := d.(*thz.THZDevice)
	if !ok {
		klog.V(2).InfoS("Failed to new THZ device,device type not supported")
		return nil, nil, constant.ErrDeviceType
	}

	connector, err := newConnector(device)
	if err != nil {
		return nil, nil, err
	}

	session := thz.NewSession(connector, thz.WithTechnician(device.Technician))
	ctx, cancel := context.WithTimeout(context.Background(), initializeTimeout)
	defer cancel()
	if err := session.Initialize(ctx); err != nil {
		klog.V(2).InfoS("Failed to connect heat pump", "error", err, "deviceId", device.ID)
		return nil, nil, constant.ErrConnectDevice
	}

	// The register view depends on the firmware the pump just reported.
	device.FirmwareVersion = session.Firmware()
	device.IndexDevice()

	profile := session.Profile()
	if len(profile.AllReadBlocks()) == 0 {
		klog.V(2).InfoS("Failed to collect from heat pump.Because of the variables is empty", "deviceId", device.ID)
		session.Close()
		return nil, nil, constant.ErrDeviceEmptyVariable
	}

	broker := &THZBroker{
		Device:     device,
		Session:    session,
		Profile:    profile,
		ExitCh:     make(chan struct{}, 0),
		VariableCh: make(chan *runtime.ParseVariableResult, 1),
		CanCollect: true,
	}
	return broker, broker.VariableCh, nil
}

func newConnector(device *thz.THZDevice) (thz.Connector, error) {
	address := device.Address
	switch device.DeviceType {
	case "thzTcp":
		location := address.Location
		if address.Option != nil && address.Option.Port > 0 {
			location = fmt.Sprintf("%s:%d", address.Location, address.Option.Port)
		}
		return func() (thz.Messenger, error) {
			return thz.NewTcpMessenger(location, thz.DefaultExchangeTimeout)
		}, nil
	case "thzSerial":
		mode := serialMode(address.Option)
		return func() (thz.Messenger, error) {
			return thz.NewSerialMessenger(address.Location, mode)
		}, nil
	default:
		klog.V(2).InfoS("Unsupported THZ transport", "deviceType", device.DeviceType)
		return nil, constant.ErrDeviceType
	}
}

func serialMode(option *thz.Option) *serial.Mode {
	mode := &serial.Mode{BaudRate: defaultBaudRate, DataBits: defaultDataBits}
	if option == nil {
		return mode
	}
	if option.BaudRate > 0 {
		mode.BaudRate = option.BaudRate
	}
	if option.DataBits > 0 {
		mode.DataBits = option.DataBits
	}
	mode.Parity = thz.ParityToParity[option.Parity]
	mode.StopBits = thz.StopBitsToStopBits[option.StopBits]
	return mode
}

func (broker *THZBroker) Destroy(ctx context.Context) {
	broker.ExitCh <- struct{}{}
	broker.Session.Close()
	close(broker.VariableCh)
}

func (broker *THZBroker) Collect(ctx context.Context) {
	if broker.CanCollect {
		go func() {
			for {
				start := time.Now().Unix()
				if !broker.poll(ctx) {
					return
				}
				select {
				case <-broker.ExitCh:
					return
				default:
					end := time.Now().Unix()
					elapsed := end - start
					if elapsed < int64(broker.Device.CollectorCycle) {
						time.Sleep(time.Duration(int64(broker.Device.CollectorCycle)-elapsed) * time.Second)
					}
				}
			}
		}()
	}
}

// poll walks every read block of the firmware profile in sequence. The
// bus is half duplex behind one serial port, fanning requests out per
// block would only make the pump drop frames.
func (broker *THZBroker) poll(ctx context.Context) bool {
	select {
	case <-broker.ExitCh:
		return false
	default:
		maxAge := time.Duration(broker.Device.CollectorCycle) * time.Second
		variables := make([]runtime.VariableValue, 0, len(broker.Device.GetVariablesMap()))
		errs := make([]error, 0)
		for _, name := range broker.Profile.AllReadBlocks() {
			block, ok := broker.Profile.Block(name)
			if !ok {
				continue
			}
			vvs, err := broker.message(ctx, block, maxAge)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			variables = append(variables, vvs...)
		}
		broker.VariableCh <- &runtime.ParseVariableResult{Err: errs, VariableSlice: variables}
		return true
	}
}

// message reads one block and slices it into variables. Entries beyond
// the payload the firmware actually returned are skipped, shorter frames
// are common on older controllers.
func (broker *THZBroker) message(ctx context.Context, block *thz.ReadBlock, maxAge time.Duration) (vvs []runtime.VariableValue, err error) {
	defer func() {
		if r := recover(); r != nil {
			klog.V(2).InfoS("Failed to ask heat pump message", "error", r, "block", block.Name)
			err = fmt.Errorf("read block %s: %v", block.Name, r)
		}
	}()

	data, err := broker.Session.ReadBlockCached(ctx, block.Command, maxAge)
	if err != nil {
		klog.V(2).InfoS("Failed to read block", "error", err, "block", block.Name, "deviceId", broker.Device.ID)
		return nil, err
	}

	vvs = make([]runtime.VariableValue, 0, len(block.Entries))
	for _, entry := range block.Entries {
		end := entry.Offset + entry.Length
		if end > len(data) {
			klog.V(3).InfoS("Block payload shorter than register", "block", block.Name, "register", entry.Name, "offset", entry.Offset, "length", len(data))
			continue
		}
		value, err := entry.Decoder.Decode(data[entry.Offset:end])
		if err != nil {
			klog.V(3).InfoS("Failed to decode register", "error", err, "block", block.Name, "register", entry.Name)
			continue
		}
		vvs = append(vvs, &thz.Variable{
			Name:  entry.Name,
			Block: block.Name,
			Unit:  entry.Unit,
			Value: value,
		})
	}
	return vvs, nil
}

func (broker *THZBroker) DeliverAction(ctx context.Context, obj map[string]interface{}) error {
	payloads := make(map[*thz.WriteParameter][]byte, len(obj))
	for name, value := range obj {
		parameter, ok := broker.Profile.Parameter(name)
		if !ok {
			return response.ErrResourceNotFound(name)
		}
		payload, err := encodeParameter(parameter, value)
		if err != nil {
			return err
		}
		payloads[parameter] = payload
	}

	for parameter, payload := range payloads {
		if err := broker.Session.WriteValue(ctx, parameter.Command, payload); err != nil {
			klog.V(2).InfoS("Failed to write parameter", "error", err, "parameter", parameter.Name, "deviceId", broker.Device.ID)
			return err
		}
		// The pump acknowledges before committing, read the register back
		// so a silently refused value at least shows up in the log.
		confirm, err := broker.Session.ReadValue(ctx, parameter.Command, 1+len(parameter.Command), len(payload))
		if err != nil {
			klog.V(2).InfoS("Failed to confirm parameter", "error", err, "parameter", parameter.Name)
		} else if !bytes.Equal(confirm, payload) {
			klog.V(2).InfoS("Parameter readback mismatch", "parameter", parameter.Name, "expect", payload, "actual", confirm)
		}
	}
	return nil
}

// encodeParameter validates a requested value against the parameter
// definition and renders the device representation.
func encodeParameter(parameter *thz.WriteParameter, value interface{}) ([]byte, error) {
	switch parameter.Kind {
	case thz.ParameterNumber:
		number, ok := value.(float64)
		if !ok {
			return nil, response.ErrNumberInvalid(parameter.Name)
		}
		if parameter.Max > parameter.Min && (number < parameter.Min || number > parameter.Max) {
			return nil, response.ErrNumberOutOfRange(parameter.Name, parameter.Min, parameter.Max)
		}
		return parameter.Decoder.Encode(number, parameter.Step), nil
	case thz.ParameterSwitch:
		var on bool
		switch v := value.(type) {
		case bool:
			on = v
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, response.ErrBooleanInvalid(parameter.Name)
			}
			on = b
		default:
			return nil, response.ErrBooleanInvalid(parameter.Name)
		}
		if on {
			return parameter.Decoder.Encode(1, 1), nil
		}
		return parameter.Decoder.Encode(0, 1), nil
	case thz.ParameterSelect:
		option, ok := value.(string)
		if !ok {
			return nil, response.ErrOptionInvalid(parameter.Name, parameter.Options)
		}
		for i, candidate := range parameter.Options {
			if candidate == option {
				return parameter.Decoder.Encode(float64(i), 1), nil
			}
		}
		return nil, response.ErrOptionInvalid(parameter.Name, parameter.Options)
	case thz.ParameterTime:
		clock, ok := value.(string)
		if !ok {
			return nil, response.ErrTimeInvalid(parameter.Name)
		}
		quarter, err := thz.TimeToQuarter(clock)
		if err != nil {
			return nil, response.ErrTimeInvalid(parameter.Name)
		}
		return []byte{quarter}, nil
	case thz.ParameterSchedule:
		slot, ok := value.(string)
		if !ok {
			return nil, response.ErrScheduleInvalid(parameter.Name)
		}
		window, err := thz.ParseScheduleWindow(slot)
		if err != nil {
			return nil, response.ErrScheduleInvalid(parameter.Name)
		}
		return window.Bytes(), nil
	default:
		klog.V(3).InfoS("Unsupported parameter kind", "kind", parameter.Kind)
		return nil, response.ErrResourceNotWritable(parameter.Name)
	}
}

func (broker *THZBroker) FetchVariables(ctx context.Context, block string) ([]runtime.VariableValue, error) {
	if len(block) > 0 {
		b, ok := broker.Profile.Block(block)
		if !ok {
			return nil, response.ErrResourceNotFound(block)
		}
		return broker.message(ctx, b, 0)
	}

	variables := make([]runtime.VariableValue, 0, len(broker.Device.GetVariablesMap()))
	for _, name := range broker.Profile.AllReadBlocks() {
		b, ok := broker.Profile.Block(name)
		if !ok {
			continue
		}
		vvs, err := broker.message(ctx, b, 0)
		if err != nil {
			return nil, err
		}
		variables = append(variables, vvs...)
	}
	return variables, nil
}
