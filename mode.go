package ocl

import (
	"strings"

	"github.com/gogpu/ocl/driver"
)

// QueueMode is a tagged set of command-queue execution-mode flags. The bit
// values match the raw driver bitmask so a QueueMode converts losslessly to
// driver.QueueFlags and back.
type QueueMode uint64

const (
	// OutOfOrderExecMode removes the guarantee that commands execute in
	// submission order. Correctness then depends exclusively on explicit
	// condition-list dependencies, markers and barriers.
	OutOfOrderExecMode QueueMode = QueueMode(driver.QueueOutOfOrderExec)

	// ProfilingMode enables per-command timestamp collection on the queue's
	// completion tokens.
	ProfilingMode QueueMode = QueueMode(driver.QueueProfiling)
)

// knownModes masks the flag bits this package understands.
const knownModes = OutOfOrderExecMode | ProfilingMode

// ModesOf returns the subset of known mode flags set in a raw driver
// bitmask. Unknown bits are dropped.
func ModesOf(raw driver.QueueFlags) QueueMode {
	return QueueMode(raw) & knownModes
}

// Has reports whether every flag in m is set in the receiver.
func (q QueueMode) Has(m QueueMode) bool { return q&m == m }

// flags converts the mode set to the raw driver bitmask.
func (q QueueMode) flags() driver.QueueFlags { return driver.QueueFlags(q) }

// String returns a human-readable rendering of the flag set.
func (q QueueMode) String() string {
	if q == 0 {
		return "NONE"
	}
	var parts []string
	if q.Has(OutOfOrderExecMode) {
		parts = append(parts, "OUT_OF_ORDER_EXEC")
	}
	if q.Has(ProfilingMode) {
		parts = append(parts, "PROFILING")
	}
	if q&^knownModes != 0 {
		parts = append(parts, "UNKNOWN")
	}
	return strings.Join(parts, "|")
}

// combineModes folds a variadic mode list into one flag set.
func combineModes(modes []QueueMode) QueueMode {
	var m QueueMode
	for _, mode := range modes {
		m |= mode
	}
	return m
}
