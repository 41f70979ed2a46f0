package dispatch

// Dispatch implements spec.md §4.11: loop-iteration/chunk dispatch
// events are out of scope, so every call is a one-shot warning and
// nothing else.
func (d *Dispatcher) Dispatch() {
	if !d.active() {
		return
	}
	d.warnUnsupportedOnce("dispatch", "loop-iteration/chunk dispatch events are not recorded")
}

// Flush implements spec.md §4.11: flush events are out of scope.
func (d *Dispatcher) Flush() {
	if !d.active() {
		return
	}
	d.warnUnsupportedOnce("flush", "flush events are not recorded")
}

// DeviceInitialize implements spec.md §4.11: log the device/accelerator
// type and do nothing else.
func (d *Dispatcher) DeviceInitialize(deviceNum int, deviceType string) {
	if d.logger != nil {
		d.logger.Infof("device-initialize: device %d type %q (accelerator accounting not implemented)", deviceNum, deviceType)
	}
}
