package commit

// Observer receives progress callbacks while a plan is executed.
// Callbacks may arrive from several goroutines at once.
type Observer interface {
	ContainerCreated(tempID, durableID string)
	ItemCommitted(tempID, durableID string)
	ItemFailed(tempID string, err error)
}

// NopObserver ignores every callback.
type NopObserver struct{}

// ContainerCreated implements Observer.
func (NopObserver) ContainerCreated(string, string) {}

// ItemCommitted implements Observer.
func (NopObserver) ItemCommitted(string, string) {}

// ItemFailed implements Observer.
func (NopObserver) ItemFailed(string, error) {}
