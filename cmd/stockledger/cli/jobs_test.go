package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/jobs"
)

type stubEnqueuer struct {
	tasks []*asynq.Task
}

func (s *stubEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (s *stubEnqueuer) Close() error { return nil }

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func (s stubInspector) ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return nil, s.err
}

func (s stubInspector) Close() error { return nil }

func TestJobsTrigger(t *testing.T) {
	enq := &stubEnqueuer{}
	c := &JobsCLI{client: enq, inspector: stubInspector{}}
	var out, errOut bytes.Buffer

	code := c.JobsCommand(context.Background(), JobsOptions{Args: []string{"trigger", "classification-scan"}, Stdout: &out, Stderr: &errOut})
	require.Equal(t, 0, code)
	require.Contains(t, out.String(), jobs.TaskClassificationScan)

	code = c.JobsCommand(context.Background(), JobsOptions{Args: []string{"trigger", jobs.TaskIntegrityCheck}, Stdout: &out, Stderr: &errOut})
	require.Equal(t, 0, code)
	require.Len(t, enq.tasks, 2)

	var payload jobs.IntegrityCheckPayload
	require.NoError(t, json.Unmarshal(enq.tasks[1].Payload(), &payload))
	require.True(t, payload.RegisterMissing)

	code = c.JobsCommand(context.Background(), JobsOptions{Args: []string{"trigger", "reindex"}, Stdout: &out, Stderr: &errOut})
	require.Equal(t, 1, code)
	require.Contains(t, errOut.String(), "unsupported job")
}

func TestJobsStats(t *testing.T) {
	c := &JobsCLI{client: &stubEnqueuer{}, inspector: stubInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 2, Retry: 1}}}
	var out, errOut bytes.Buffer

	code := c.JobsCommand(context.Background(), JobsOptions{Args: []string{"stats", "--json"}, Stdout: &out, Stderr: &errOut})
	require.Equal(t, 0, code)
	var stats QueueStats
	require.NoError(t, json.Unmarshal(out.Bytes(), &stats))
	require.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 2, Retry: 1}, stats)

	out.Reset()
	code = c.JobsCommand(context.Background(), JobsOptions{Args: []string{"stats"}, Stdout: &out, Stderr: &errOut})
	require.Equal(t, 0, code)
	require.Equal(t, "queue=default pending=2 active=0 scheduled=0 retry=1\n", out.String())

	failing := &JobsCLI{client: &stubEnqueuer{}, inspector: stubInspector{err: errors.New("redis down")}}
	code = failing.JobsCommand(context.Background(), JobsOptions{Args: []string{"stats"}, Stdout: &out, Stderr: &errOut})
	require.Equal(t, 1, code)
}

func TestJobsUsage(t *testing.T) {
	c := &JobsCLI{}
	var out, errOut bytes.Buffer
	require.Equal(t, 2, c.JobsCommand(context.Background(), JobsOptions{Stdout: &out, Stderr: &errOut}))
	require.Equal(t, 2, c.JobsCommand(context.Background(), JobsOptions{Args: []string{"purge"}, Stdout: &out, Stderr: &errOut}))
}
