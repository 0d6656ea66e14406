package browser

// lockedElement routes element calls through the session lock so a click
// never overlaps a navigation.
type lockedElement struct {
	el      Element
	session *Session
}

func (s *Session) wrap(el Element) Element {
	if el == nil {
		return nil
	}
	return &lockedElement{el: el, session: s}
}

func (e *lockedElement) Text() (string, error) {
	var text string
	err := e.session.withDriver(func() error {
		var err error
		text, err = e.el.Text()
		return err
	})
	return text, err
}

func (e *lockedElement) Attribute(name string) (string, error) {
	var value string
	err := e.session.withDriver(func() error {
		var err error
		value, err = e.el.Attribute(name)
		return err
	})
	return value, err
}

func (e *lockedElement) Click() error {
	return e.session.withDriver(e.el.Click)
}

func (e *lockedElement) SendKeys(text string) error {
	return e.session.withDriver(func() error { return e.el.SendKeys(text) })
}

func (s *Session) withDriver(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return fn()
}
