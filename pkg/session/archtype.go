package session

import "fmt"

// ArchType selects one of the eight fixed (input-channels, reservoir-neurons)
// combinations the device firmware supports. It is sent to the device as a
// ReservoirKind parameter (see Param).
type ArchType uint8

// The closed set of reservoir architectures, in the device's enum order.
// Ch_Nn_None is unused — ArchType 0 never resolves to a valid config.
const (
	ArchCh1Nn10  ArchType = 1
	ArchCh1Nn18  ArchType = 2
	ArchCh1Nn30  ArchType = 3
	ArchCh1Nn100 ArchType = 4
	ArchCh3Nn10  ArchType = 5
	ArchCh3Nn30  ArchType = 6
	ArchCh3Nn100 ArchType = 7
	ArchCh6Nn17  ArchType = 8
)

type archPair struct {
	channels int
	neurons  int
}

var archTable = map[ArchType]archPair{
	ArchCh1Nn10:  {1, 10},
	ArchCh1Nn18:  {1, 18},
	ArchCh1Nn30:  {1, 30},
	ArchCh1Nn100: {1, 100},
	ArchCh3Nn10:  {3, 10},
	ArchCh3Nn30:  {3, 30},
	ArchCh3Nn100: {3, 100},
	ArchCh6Nn17:  {6, 17},
}

// ResolveArchType maps an (input-channels, neurons) pair to its ArchType
// code. Only the eight combinations the device firmware implements are
// legal; anything else is an argument error.
func ResolveArchType(channels, neurons int) (ArchType, error) {
	for arch, pair := range archTable {
		if pair.channels == channels && pair.neurons == neurons {
			return arch, nil
		}
	}
	return 0, fmt.Errorf("session: no architecture for %d channel(s) / %d neurons", channels, neurons)
}
