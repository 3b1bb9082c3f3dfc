package domain

// MonitorHooks defines callbacks for monitor observability.
// Any field may be nil.
type MonitorHooks struct {
	// OnTransition fires after a transition was handed to the recorder.
	OnTransition func(Subject, Transition)
	// OnInvalidated fires when a subject is excluded after a non-enabled error.
	OnInvalidated func(subject Subject, signature string, err error)
	// OnFailure fires for every fatal error before it is returned.
	OnFailure func(error)
}

// FireTransition calls OnTransition if set.
func (h MonitorHooks) FireTransition(s Subject, t Transition) {
	if h.OnTransition != nil {
		h.OnTransition(s, t)
	}
}

// FireInvalidated calls OnInvalidated if set.
func (h MonitorHooks) FireInvalidated(s Subject, signature string, err error) {
	if h.OnInvalidated != nil {
		h.OnInvalidated(s, signature, err)
	}
}

// FireFailure calls OnFailure if set.
func (h MonitorHooks) FireFailure(err error) {
	if h.OnFailure != nil {
		h.OnFailure(err)
	}
}

// Combine returns hooks that call every non-nil hook of hs in order.
func Combine(hs ...MonitorHooks) MonitorHooks {
	return MonitorHooks{
		OnTransition: func(s Subject, t Transition) {
			for _, h := range hs {
				h.FireTransition(s, t)
			}
		},
		OnInvalidated: func(s Subject, signature string, err error) {
			for _, h := range hs {
				h.FireInvalidated(s, signature, err)
			}
		},
		OnFailure: func(err error) {
			for _, h := range hs {
				h.FireFailure(err)
			}
		},
	}
}
