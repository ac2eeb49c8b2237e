package pushjob

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrTimedOut matches a *FailedError caused by the job running out of time.
var ErrTimedOut = errors.New("push job timed out")

// FailedError is returned by Wait when the job timed out,
// or completed without succeeding on every node.
type FailedError struct {
	Job      Snapshot
	TimedOut bool
}

func (e *FailedError) Error() string {
	var msg string
	if e.TimedOut {
		msg = fmt.Sprintf("The push-job %s timed out.", e.Job.ID)
	} else {
		msg = fmt.Sprintf("The push-job %s failed to complete successfully.", e.Job.ID)
	}

	return msg + describe(e.Job)
}

func (e *FailedError) Is(target error) bool {
	return target == ErrTimedOut && e.TimedOut
}

// ErrorStateError is returned when the server reports the job in an error state
// such as quorum_failed, crashed or aborted.
type ErrorStateError struct {
	Job    Snapshot
	Status string
}

func (e *ErrorStateError) Error() string {
	return fmt.Sprintf("The push-job %s failed with error state %q.", e.Job.ID, e.Status) + describe(e.Job)
}

func describe(job Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n\nCommand: %s\n", job.Command)

	if len(job.Nodes) == 0 {
		return b.String()
	}

	buckets := make([]string, 0, len(job.Nodes))
	for bucket := range job.Nodes {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)

	b.WriteString("Nodes:\n")
	for _, bucket := range buckets {
		fmt.Fprintf(&b, "  %s: %s\n", bucket, strings.Join(job.Nodes[bucket], ", "))
	}

	return b.String()
}
