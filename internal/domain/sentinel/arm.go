package sentinel

// ArmResult is the outcome of an arm/disarm command.
type ArmResult int

const (
	// ArmInvalid means the command was not recognized and nothing changed.
	ArmInvalid ArmResult = -1
	// ArmDisarmed means notifications are now suppressed.
	ArmDisarmed ArmResult = 0
	// ArmArmed means notifications are now permitted.
	ArmArmed ArmResult = 1
)

// Arm command arguments.
const (
	ArmCommand    = "arm"
	DisarmCommand = "disarm"
)

// ParseArm maps an arm/disarm command to the armed flag it requests.
func ParseArm(command string) (armed bool, result ArmResult) {
	switch command {
	case ArmCommand:
		return true, ArmArmed
	case DisarmCommand:
		return false, ArmDisarmed
	default:
		return false, ArmInvalid
	}
}

// String returns a human readable name.
func (r ArmResult) String() string {
	switch r {
	case ArmArmed:
		return "armed"
	case ArmDisarmed:
		return "disarmed"
	default:
		return "invalid"
	}
}
