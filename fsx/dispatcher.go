package fsx

// Dispatcher routes SDK events to registered callbacks. Each component owns
// its own events; no callback reads another component's rendered output.
type Dispatcher struct {
	onBusy        func(Form, bool)
	onFormError   func(Form, string)
	onNotice      func(Notice)
	onSwitchView  func(View)
	onCloseModal  func()
	onNavigate    func(string)
	onPresence    func(PresenceView)
	onStatusLine  func(string)
	onStateChange func(StateEvent)
	onError       func(error)
}

func (d *Dispatcher) SetOnBusy(fn func(Form, bool))        { d.onBusy = fn }
func (d *Dispatcher) SetOnFormError(fn func(Form, string)) { d.onFormError = fn }
func (d *Dispatcher) SetOnNotice(fn func(Notice))          { d.onNotice = fn }
func (d *Dispatcher) SetOnSwitchView(fn func(View))        { d.onSwitchView = fn }
func (d *Dispatcher) SetOnCloseForgotModal(fn func())      { d.onCloseModal = fn }
func (d *Dispatcher) SetOnNavigate(fn func(string))        { d.onNavigate = fn }
func (d *Dispatcher) SetOnPresence(fn func(PresenceView))  { d.onPresence = fn }
func (d *Dispatcher) SetOnStatusLine(fn func(string))      { d.onStatusLine = fn }
func (d *Dispatcher) SetOnStateChange(fn func(StateEvent)) { d.onStateChange = fn }
func (d *Dispatcher) SetOnError(fn func(error))            { d.onError = fn }

func (d *Dispatcher) fireBusy(form Form, busy bool) {
	if d.onBusy != nil {
		d.onBusy(form, busy)
	}
}

func (d *Dispatcher) fireFormError(form Form, text string) {
	if d.onFormError != nil {
		d.onFormError(form, text)
	}
}

func (d *Dispatcher) fireNotice(n Notice) {
	if d.onNotice != nil {
		d.onNotice(n)
	}
}

func (d *Dispatcher) fireSwitchView(v View) {
	if d.onSwitchView != nil {
		d.onSwitchView(v)
	}
}

func (d *Dispatcher) fireCloseForgotModal() {
	if d.onCloseModal != nil {
		d.onCloseModal()
	}
}

func (d *Dispatcher) fireNavigate(route string) {
	if d.onNavigate != nil {
		d.onNavigate(route)
	}
}

func (d *Dispatcher) firePresence(v PresenceView) {
	if d.onPresence != nil {
		d.onPresence(v)
	}
}

func (d *Dispatcher) fireStatusLine(line string) {
	if d.onStatusLine != nil {
		d.onStatusLine(line)
	}
}

func (d *Dispatcher) fireStateChange(ev StateEvent) {
	if d.onStateChange != nil {
		d.onStateChange(ev)
	}
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}
