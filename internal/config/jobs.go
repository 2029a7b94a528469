package config

import (
	"fmt"
	"slices"
	"time"
)

// JobKind names one of the fixed periodic jobs run by the daemon.
type JobKind string

const (
	JobLaunchRocket     JobKind = "launch_rocket"
	JobShipCargoes      JobKind = "ship_cargoes"
	JobSendWeather      JobKind = "send_weather"
	JobFetchRemoteNews  JobKind = "fetch_remote_news"
	JobBackupDatabase   JobKind = "backup_database"
	JobGenCargoTextInfo JobKind = "gen_cargo_text_info"
)

var jobKinds = []JobKind{
	JobLaunchRocket,
	JobShipCargoes,
	JobSendWeather,
	JobFetchRemoteNews,
	JobBackupDatabase,
	JobGenCargoTextInfo,
}

var defaultJobPeriods = map[JobKind]time.Duration{
	JobLaunchRocket:     10 * time.Minute,
	JobShipCargoes:      60 * time.Second,
	JobSendWeather:      5 * time.Minute,
	JobFetchRemoteNews:  6 * time.Hour,
	JobBackupDatabase:   8 * time.Hour,
	JobGenCargoTextInfo: 3 * time.Second,
}

// JobKinds returns every known job kind in registration order.
func JobKinds() []JobKind {
	return slices.Clone(jobKinds)
}

// ParseJobKind resolves a job name, rejecting anything outside the fixed set.
func ParseJobKind(value string) (JobKind, error) {
	kind := JobKind(value)
	if !slices.Contains(jobKinds, kind) {
		return "", fmt.Errorf("unknown job %q", value)
	}
	return kind, nil
}

// JobPeriod returns the configured tick period for a job kind.
func (c *Config) JobPeriod(kind JobKind) time.Duration {
	if seconds, ok := c.Schedule.Periods[string(kind)]; ok && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultJobPeriods[kind]
}

// JobEnabled reports whether the daemon should register a job kind.
func (c *Config) JobEnabled(kind JobKind) bool {
	if slices.Contains(c.Schedule.Disabled, string(kind)) {
		return false
	}
	switch kind {
	case JobSendWeather:
		return c.Weather.Enabled
	case JobFetchRemoteNews:
		return c.News.Enabled
	}
	return true
}
