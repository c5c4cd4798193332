package descriptor

// Bus is a physical network segment. DBC files do not describe buses
// beyond the empty BS_ section, so buses usually come from KCD input.
type Bus struct {
	Name string

	// BaudRate in bits per second, 0 when unset.
	BaudRate uint32

	// Comment is the bus comment, or empty.
	Comment string
}
