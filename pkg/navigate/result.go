package navigate

// Result describes what a navigation call did to the history stack.
type Result uint8

const (
	// ResultRejected means the target was invalid; nothing happened.
	ResultRejected Result = iota

	// ResultPushed means a new history entry was appended.
	ResultPushed

	// ResultReplaced means the current history entry was overwritten.
	ResultReplaced

	// ResultDeduplicated means the target already was the current
	// address, so the stack was left alone but the change was reported.
	ResultDeduplicated
)

// String returns the result name used in logs and metric labels.
func (r Result) String() string {
	switch r {
	case ResultRejected:
		return "rejected"
	case ResultPushed:
		return "pushed"
	case ResultReplaced:
		return "replaced"
	case ResultDeduplicated:
		return "deduplicated"
	default:
		return "unknown"
	}
}

// Mutated reports whether the history stack was changed.
func (r Result) Mutated() bool {
	return r == ResultPushed || r == ResultReplaced
}

// Op names a history operation.
type Op string

const (
	OpPush    Op = "push"
	OpReplace Op = "replace"
)
