package navigate

// Navigation performs one server-issued navigation when it is first
// activated. Later activations of the same instance do nothing, so a
// renderer that mounts it twice still produces a single history change.
type Navigation struct {
	cmd     *Commander
	to      any
	replace bool
	done    bool
	result  Result
}

// NewNavigation creates a Navigation to to. to is normally a string; any
// other value is rejected when the Navigation runs.
func NewNavigation(cmd *Commander, to any, replace bool) *Navigation {
	return &Navigation{cmd: cmd, to: to, replace: replace}
}

// Activate runs the navigation if it has not run yet.
func (n *Navigation) Activate() error {
	if n.done {
		return nil
	}
	n.done = true

	var err error
	if n.replace {
		n.result, err = n.cmd.ReplaceValue(n.to)
	} else {
		n.result, err = n.cmd.PushValue(n.to)
	}
	return err
}

// Deactivate is a no-op; a completed navigation is not undone.
func (n *Navigation) Deactivate() {}

// Done reports whether the navigation has run.
func (n *Navigation) Done() bool {
	return n.done
}

// Result returns the outcome of the navigation once it has run.
func (n *Navigation) Result() Result {
	return n.result
}
