package exitcode

const (
	Success        = 0
	RuntimeFailure = 1
	InvalidUsage   = 2
	Interrupted    = 130
)
