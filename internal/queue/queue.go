package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
)

// Queue names. Each queue is owned by exactly one consuming stage.
const (
	QueueRawMedia        = "raw-media"
	QueueAudioReady      = "audio-ready"
	QueueTranscriptReady = "transcript-ready"
)

// Task types, one per stage transition.
const (
	TaskTypeExtract    = "pipeline:extract"
	TaskTypeTranscribe = "pipeline:transcribe"
	TaskTypeAnalyze    = "pipeline:analyze"
)

// AllQueues lists every pipeline queue in flow order.
var AllQueues = []string{QueueRawMedia, QueueAudioReady, QueueTranscriptReady}

// route maps the stage that produced an envelope to the queue and task type
// of the next hop.
type route struct {
	queue    string
	taskType string
}

var routes = map[model.Stage]route{
	model.StageIngested:       {QueueRawMedia, TaskTypeExtract},
	model.StageAudioExtracted: {QueueAudioReady, TaskTypeTranscribe},
	model.StageTranscribed:    {QueueTranscriptReady, TaskTypeAnalyze},
}

// Publisher publishes a job envelope to the queue consumed by the next
// stage. Workers call Publish before acknowledging their input message, so a
// crash in between causes redelivery rather than message loss.
type Publisher interface {
	Publish(ctx context.Context, producedBy model.Stage, env *model.JobEnvelope) error
}

// AsynqPublisher implements Publisher on top of an asynq client.
type AsynqPublisher struct {
	client   *asynq.Client
	maxRetry int
	timeout  time.Duration
}

func NewAsynqPublisher(client *asynq.Client, maxRetry int, timeout time.Duration) *AsynqPublisher {
	return &AsynqPublisher{
		client:   client,
		maxRetry: maxRetry,
		timeout:  timeout,
	}
}

func (p *AsynqPublisher) Publish(ctx context.Context, producedBy model.Stage, env *model.JobEnvelope) error {
	r, ok := routes[producedBy]
	if !ok {
		return fmt.Errorf("no route for stage %q", producedBy)
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	task := asynq.NewTask(r.taskType, payload)
	_, err = p.client.EnqueueContext(ctx, task,
		asynq.Queue(r.queue),
		asynq.MaxRetry(p.maxRetry),
		asynq.Timeout(p.timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", r.taskType, err)
	}
	return nil
}

// ServerQueues builds the asynq queue map for a worker process. An empty
// selection means the process consumes every pipeline queue.
func ServerQueues(selected []string) map[string]int {
	if len(selected) == 0 {
		selected = AllQueues
	}
	queues := make(map[string]int, len(selected))
	for _, q := range selected {
		queues[q] = 1
	}
	return queues
}

// DecodeEnvelope unmarshals a task payload into a job envelope. A payload
// that fails to parse is a poison message and must be dropped, not retried.
func DecodeEnvelope(t *asynq.Task) (*model.JobEnvelope, error) {
	var env model.JobEnvelope
	if err := json.Unmarshal(t.Payload(), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidEnvelope, err)
	}
	return &env, nil
}
