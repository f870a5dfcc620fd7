package checkout

import (
	"ferryline/pkg/logger"
)

// GuardFunc is the caller-granted back-navigation policy. It is consulted
// on every backward click; forward clicks past the current step are always
// no-ops regardless of policy.
type GuardFunc func(from, to Step) bool

// AllowBack grants unconditional backward navigation.
func AllowBack(Step, Step) bool { return true }

// DenyBack forbids backward navigation entirely.
func DenyBack(Step, Step) bool { return false }

// Machine is the five-stage checkout flow with guarded navigation. It only
// tracks position; the flow controller couples it to the cart so that
// resets clear downstream selections.
type Machine struct {
	log       *logger.Logger
	current   Step
	canGoBack GuardFunc
}

func NewMachine(log *logger.Logger, canGoBack GuardFunc) *Machine {
	if canGoBack == nil {
		canGoBack = DenyBack
	}
	return &Machine{
		log:       log.WithComponent("checkout"),
		current:   StepSearch,
		canGoBack: canGoBack,
	}
}

func (m *Machine) Current() Step {
	return m.current
}

// Advance moves exactly one step forward. It is the only way forward;
// jumping ahead is impossible by construction.
func (m *Machine) Advance() Step {
	if m.current.IsTerminal() {
		return m.current
	}
	next := m.current + 1
	m.log.Debug("checkout advanced", "from", m.current.String(), "to", next.String())
	m.current = next
	return m.current
}

// GoTo handles a step-indicator click. Clicking a step past the current one
// never navigates. Clicking the current step or an earlier one navigates
// only when the back-navigation guard allows it.
func (m *Machine) GoTo(target Step) bool {
	if !target.Valid() || target > m.current {
		return false
	}
	if !m.canGoBack(m.current, target) {
		m.log.Debug("back navigation denied", "from", m.current.String(), "to", target.String())
		return false
	}
	m.log.Debug("checkout navigated back", "from", m.current.String(), "to", target.String())
	m.current = target
	return true
}

// StartNewSearch resets the flow for a fresh search. The step lands on
// select_ferry: the traveller is shown new results next, and everything
// downstream of them is invalid. Cart clearing is the controller's half of
// this reset.
func (m *Machine) StartNewSearch() {
	m.log.Debug("checkout reset for new search", "from", m.current.String())
	m.current = StepSelectFerry
}

// CompleteBooking jumps to confirmation. Only valid when the booking
// collaborator reports the booking settled (CONFIRMED or COMPLETED), which
// makes the payment step moot.
func (m *Machine) CompleteBooking() {
	m.log.Debug("checkout short-circuited to confirmation", "from", m.current.String())
	m.current = StepConfirmation
}
