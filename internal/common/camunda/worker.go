// internal/common/camunda/worker.go
package camunda

import (
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"cre-workers/internal/common/logger"
)

// JobHandler is implemented by every worker handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// WorkerSpec describes how a job worker polls the broker.
type WorkerSpec struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

// OpenWorker starts polling for spec.TaskType jobs. Close the returned worker
// on shutdown.
func OpenWorker(client zbc.Client, spec WorkerSpec, handler JobHandler, log logger.Logger) worker.JobWorker {
	jobWorker := client.NewJobWorker().
		JobType(spec.TaskType).
		Handler(handler.Handle).
		MaxJobsActive(spec.MaxJobsActive).
		Timeout(spec.Timeout).
		Name(fmt.Sprintf("%s-worker", spec.TaskType)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      spec.TaskType,
		"maxJobsActive": spec.MaxJobsActive,
		"timeout":       spec.Timeout.String(),
	})
	return jobWorker
}
