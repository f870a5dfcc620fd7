package checkout

// Step is one stage of the reservation flow. The order is the flow:
// forward navigation moves one step at a time, never skipping.
type Step int

const (
	StepSearch Step = iota
	StepSelectFerry
	StepBookingDetails
	StepPayment
	StepConfirmation
)

var stepNames = map[Step]string{
	StepSearch:         "search",
	StepSelectFerry:    "select_ferry",
	StepBookingDetails: "booking_details",
	StepPayment:        "payment",
	StepConfirmation:   "confirmation",
}

// ParseStep maps a wire name back to its step.
func ParseStep(name string) (Step, bool) {
	for step, n := range stepNames {
		if n == name {
			return step, true
		}
	}
	return 0, false
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Step) Valid() bool {
	_, ok := stepNames[s]
	return ok
}

// IsTerminal reports whether the flow is finished.
func (s Step) IsTerminal() bool {
	return s == StepConfirmation
}
