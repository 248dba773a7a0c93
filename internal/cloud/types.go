package cloud

import "context"

// PowerState is a closed enumeration over the instance lifecycle states
// the reconciler cares about. The external API speaks short string
// codes; ParsePowerState and String are the only places that mapping
// lives.
type PowerState int

const (
	StateUnknown PowerState = iota
	StatePending
	StateRunning
	StateShuttingDown
	StateTerminated
	StateStopping
	StateStopped
)

var stateCodes = map[string]PowerState{
	"pending":       StatePending,
	"running":       StateRunning,
	"shutting-down": StateShuttingDown,
	"terminated":    StateTerminated,
	"stopping":      StateStopping,
	"stopped":       StateStopped,
}

var stateNames = map[PowerState]string{
	StateUnknown:      "unknown",
	StatePending:      "pending",
	StateRunning:      "running",
	StateShuttingDown: "shutting-down",
	StateTerminated:   "terminated",
	StateStopping:     "stopping",
	StateStopped:      "stopped",
}

// ParsePowerState maps an API state code to the enum. Codes we have
// never seen come back as StateUnknown rather than an error; the
// reconciler treats unknown as "not in the state I want".
func ParsePowerState(code string) PowerState {
	if s, ok := stateCodes[code]; ok {
		return s
	}
	return StateUnknown
}

func (s PowerState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Machine is one virtual machine as seen at enumeration time. State is
// a snapshot; the reconciler re-queries it live before acting.
type Machine struct {
	ID    string
	Name  string
	Group string
	Type  string
	Tags  map[string]string
	State PowerState
}

// Group is a resource group with its tag set.
type Group struct {
	Name string
	ARN  string
	Tags map[string]string
}

// Client is the thin surface this tool needs from the cloud API. The
// EC2 implementation lives in this package; tests use a fake.
type Client interface {
	// ListMachines enumerates every machine in scope with its tags.
	ListMachines(ctx context.Context) ([]Machine, error)
	// ListGroups enumerates resource groups with their tags.
	ListGroups(ctx context.Context) ([]Group, error)
	// PowerState fetches the machine's current state, live.
	PowerState(ctx context.Context, id string) (PowerState, error)
	// Start powers a machine on. Asynchronous on the provider side; we
	// do not wait for the transition to finish.
	Start(ctx context.Context, id string) error
	// Stop powers a machine off. force overrides a pending stop.
	Stop(ctx context.Context, id string, force bool) error
	// SetTags replaces the given tags on a machine.
	SetTags(ctx context.Context, id string, tags map[string]string) error
	// StopProtected reports whether the machine carries a stop lock.
	StopProtected(ctx context.Context, id string) (bool, error)
}
