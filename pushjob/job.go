// Package pushjob runs a command on a set of nodes through the Chef Push Jobs server
// and waits for it to finish.
//
// A job goes through new, voting and running before it reaches one of its terminal states:
// complete, or one of the error states timed_out, quorum_failed, crashed and aborted.
// Every transition is observed by polling the server. The only thing decided locally is
// the timeout, which also fires when the server is too slow to report timed_out itself.
package pushjob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
)

const (
	StatusNew          = "new"
	StatusVoting       = "voting"
	StatusRunning      = "running"
	StatusComplete     = "complete"
	StatusTimedOut     = "timed_out"
	StatusQuorumFailed = "quorum_failed"
	StatusCrashed      = "crashed"
	StatusAborted      = "aborted"

	BucketSucceeded = "succeeded"

	DefaultTimeout      = 30 * time.Minute
	DefaultPollInterval = 5 * time.Second

	jobsPath = "pushy/jobs"
)

var nodeNameRegexp = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// Client is the part of the Chef Server API client a job needs.
// *chefserver.Server implements it.
type Client interface {
	Rest(ctx context.Context, method, path string, body, out interface{}) error
}

type Options struct {
	// Command is the whitelisted push jobs command to run.
	Command string

	// Nodes are the names of the nodes to run Command on.
	Nodes []string

	// Timeout is how long the job may run. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Quorum is how many nodes must acknowledge the job for it to run.
	// Defaults to the number of nodes.
	Quorum int

	// PollInterval is how long Wait sleeps between two refreshes.
	// Defaults to DefaultPollInterval.
	PollInterval time.Duration
}

// Snapshot is the job as last reported by the server.
type Snapshot struct {
	ID        string              `json:"id"`
	Command   string              `json:"command"`
	Status    string              `json:"status"`
	CreatedAt string              `json:"created_at"`
	UpdatedAt string              `json:"updated_at"`
	Nodes     map[string][]string `json:"nodes"`
}

// Job is one push job. It is not safe for concurrent use;
// run one Job per goroutine to fan out.
type Job struct {
	client Client

	command      string
	nodes        []string
	timeout      time.Duration
	quorum       int
	pollInterval time.Duration

	uri       string
	job       Snapshot
	id        string
	status    string
	createdAt time.Time
	updatedAt time.Time
	results   map[string][]string

	now func() time.Time
}

// New validates opts and returns a job ready to be dispatched.
// Nothing is sent to the server until Dispatch.
func New(client Client, opts Options) (*Job, error) {
	for i, n := range opts.Nodes {
		if !nodeNameRegexp.MatchString(n) {
			return nil, fmt.Errorf("expected a list of node names, got %q at index %d", n, i)
		}
	}

	quorum := opts.Quorum
	switch {
	case quorum < 0:
		return nil, fmt.Errorf("quorum must not be negative: %d", quorum)
	case quorum == 0:
		quorum = len(opts.Nodes)
	case quorum > len(opts.Nodes):
		return nil, fmt.Errorf("quorum %d exceeds the number of nodes %d", quorum, len(opts.Nodes))
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	pollInterval := opts.PollInterval
	if pollInterval == 0 {
		pollInterval = DefaultPollInterval
	}

	return &Job{
		client:       client,
		command:      opts.Command,
		nodes:        append([]string(nil), opts.Nodes...),
		timeout:      timeout,
		quorum:       quorum,
		pollInterval: pollInterval,
		now:          time.Now,
	}, nil
}

// Run dispatches the job and waits for it to succeed.
// A job without nodes is a no-op.
func Run(ctx context.Context, client Client, opts Options) error {
	if len(opts.Nodes) == 0 {
		logrus.Infof("Zero nodes passed to push job %q, skipping", opts.Command)
		return nil
	}

	j, err := New(client, opts)
	if err != nil {
		return err
	}

	if err := j.Dispatch(ctx); err != nil {
		return err
	}

	return j.Wait(ctx)
}

// Dispatch creates the job on the server and loads its initial state.
func (j *Job) Dispatch(ctx context.Context) error {
	body := map[string]interface{}{
		"command":     j.command,
		"nodes":       j.nodes,
		"run_timeout": int(j.timeout / time.Second),
		"quorum":      j.quorum,
	}

	var res struct {
		URI string `json:"uri"`
	}

	if err := j.client.Rest(ctx, http.MethodPost, jobsPath, body, &res); err != nil {
		return fmt.Errorf("unable to dispatch push job %q: %w", j.command, err)
	}

	if res.URI == "" {
		return fmt.Errorf("push jobs server returned no uri for %q", j.command)
	}

	j.uri = res.URI

	logrus.WithField("uri", j.uri).Infof("dispatched push job %q on %d node(s)", j.command, len(j.nodes))

	return j.Refresh(ctx)
}

// Refresh reloads the job from the server.
// The id is recorded on the first refresh and never changes afterwards.
func (j *Job) Refresh(ctx context.Context) error {
	if j.uri == "" {
		return errors.New("push job has not been dispatched")
	}

	var snap Snapshot
	if err := j.client.Rest(ctx, http.MethodGet, j.uri, nil, &snap); err != nil {
		return fmt.Errorf("unable to refresh push job %s: %w", j.uri, err)
	}

	createdAt, err := parseTime(snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("push job %s has an invalid created_at: %w", j.uri, err)
	}

	updatedAt, err := parseTime(snap.UpdatedAt)
	if err != nil {
		return fmt.Errorf("push job %s has an invalid updated_at: %w", j.uri, err)
	}

	if snap.Command == "" {
		snap.Command = j.command
	}

	if j.id == "" {
		j.id = snap.ID
	}
	snap.ID = j.id

	j.job = snap
	j.status = snap.Status
	j.createdAt = createdAt
	j.updatedAt = updatedAt
	j.results = snap.Nodes

	return nil
}

// Complete reports whether the job has completed.
// A job in an error state is neither complete nor running: it yields an *ErrorStateError.
func (j *Job) Complete() (bool, error) {
	switch j.status {
	case StatusNew, StatusVoting, StatusRunning:
		return false, nil
	case StatusComplete:
		return true, nil
	default:
		return false, &ErrorStateError{Job: j.Snapshot(), Status: j.status}
	}
}

// Successful reports whether the job completed on every node.
// Succeeding on a quorum of the nodes is not enough.
func (j *Job) Successful() (bool, error) {
	complete, err := j.Complete()
	if err != nil || !complete {
		return false, err
	}

	return j.allNodesSucceeded(), nil
}

// Failed reports whether the job completed without succeeding on every node.
func (j *Job) Failed() (bool, error) {
	complete, err := j.Complete()
	if err != nil || !complete {
		return false, err
	}

	return !j.allNodesSucceeded(), nil
}

// TimedOut reports whether the server says the job timed out,
// or the job has been running for longer than its timeout.
func (j *Job) TimedOut() bool {
	if j.status == StatusTimedOut {
		return true
	}

	return !j.now().Before(j.createdAt.Add(j.timeout))
}

var errPending = errors.New("push job is still running")

// Wait polls the job until it succeeds.
//
// It returns a *FailedError when the job times out or completes without succeeding
// on every node, and an *ErrorStateError when the job ends in an error state.
// The timeout is checked before success on every poll, so a job the server reports as
// complete after its deadline is still a failure.
//
// Errors talking to the server are returned as is and never retried.
func (j *Job) Wait(ctx context.Context) error {
	return retry.Do(
		func() error {
			if err := j.Refresh(ctx); err != nil {
				return err
			}

			if j.TimedOut() {
				return &FailedError{Job: j.Snapshot(), TimedOut: true}
			}

			failed, err := j.Failed()
			if err != nil {
				return err
			}

			if failed {
				return &FailedError{Job: j.Snapshot()}
			}

			if ok, _ := j.Successful(); ok {
				logrus.WithField("id", j.id).Infof("push job %q succeeded", j.command)
				return nil
			}

			return errPending
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(j.pollInterval),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errPending)
		}),
		retry.OnRetry(func(n uint, _ error) {
			logrus.WithFields(logrus.Fields{
				"id":     j.id,
				"status": j.status,
				"poll":   n,
			}).Debug("push job is still running")
		}),
	)
}

func (j *Job) ID() string                   { return j.id }
func (j *Job) URI() string                  { return j.uri }
func (j *Job) Status() string               { return j.status }
func (j *Job) Command() string              { return j.command }
func (j *Job) Nodes() []string              { return append([]string(nil), j.nodes...) }
func (j *Job) Quorum() int                  { return j.quorum }
func (j *Job) Timeout() time.Duration       { return j.timeout }
func (j *Job) CreatedAt() time.Time         { return j.createdAt }
func (j *Job) UpdatedAt() time.Time         { return j.updatedAt }
func (j *Job) Results() map[string][]string { return copyResults(j.results) }

// Snapshot returns the job as last reported by the server,
// with the id recorded on the first refresh.
func (j *Job) Snapshot() Snapshot {
	snap := j.job
	snap.Nodes = copyResults(j.job.Nodes)

	return snap
}

func copyResults(results map[string][]string) map[string][]string {
	if results == nil {
		return nil
	}

	out := make(map[string][]string, len(results))
	for bucket, nodes := range results {
		out[bucket] = append([]string(nil), nodes...)
	}

	return out
}

func (j *Job) allNodesSucceeded() bool {
	return len(j.results[BucketSucceeded]) == len(j.nodes)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02T15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}
