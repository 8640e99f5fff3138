package subscriptions

import (
	"fmt"

	"github.com/quillpad/quillpad/internal/governance"
)

type Event string

const (
	EventActivate Event = "activate"
	EventBlock    Event = "block"
)

// transitions lists the writes the lifecycle may perform. EXPIRED is never
// a target: it is inferred from EndDate.
var transitions = map[Status]map[Event]Status{
	StatusPending: {EventActivate: StatusActive, EventBlock: StatusBlocked},
	StatusActive:  {EventBlock: StatusBlocked},
	StatusExpired: {EventBlock: StatusBlocked},
	StatusBlocked: {EventBlock: StatusBlocked},
}

// Next returns the status reached by applying ev to from.
func Next(from Status, ev Event) (Status, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return "", governance.Wrap(governance.ErrInvalidTransition, fmt.Errorf("%s from %s", ev, from))
}
