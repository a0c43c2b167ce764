package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2
	DBConnError     = 3
	CopyError       = 4
	FinalizeError   = 5
	StoreError      = 6
	DecodeError     = 7
	NoCodes         = 8
	ServeError      = 9
)
