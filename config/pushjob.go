package config

import "time"

type PushJob struct {
	// Timeout is how long a push job may run before it is considered failed.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// PollInterval is how often the push jobs server is asked for the job status.
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`
}

func (p *PushJob) setDefaults() {
	if p.Timeout == 0 {
		p.Timeout = 30 * time.Minute
	}

	if p.PollInterval == 0 {
		p.PollInterval = 5 * time.Second
	}
}
