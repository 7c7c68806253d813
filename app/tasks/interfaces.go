package tasks

// TaskSchedulerInterface defines the interface for background task
// scheduling. Used by the composition root and the API layer to enqueue
// work without depending on the scheduler implementation.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
