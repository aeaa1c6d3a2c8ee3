package db

// ProgressMonitor receives progress updates from long-running database
// work such as the search-index backfill.
type ProgressMonitor interface {
	// Start sets the interval [0, total].
	Start(total int64)
	Advance(n int64)
	// Finish is called exactly once, including on cancellation.
	Finish()
}

type NopProgress struct{}

func (NopProgress) Start(total int64) {}
func (NopProgress) Advance(n int64)   {}
func (NopProgress) Finish()           {}
