package domain

import (
	"maps"
	"time"
)

// RunStatus enumerates run lifecycle states.
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunStopping  RunStatus = "stopping"
)

// Active reports whether a run in this status still owns the worker.
func (s RunStatus) Active() bool {
	return s == RunRunning || s == RunStopping
}

// RunRequest is what a caller asks the orchestrator to do.
type RunRequest struct {
	DryRun bool      `json:"dry_run"`
	Steps  StepRange `json:"steps"`
	// Day selects the date partition; zero means today in the configured timezone.
	Day time.Time `json:"-"`
}

// RunID derives the date-based identifier of a run.
func RunID(day time.Time) string {
	return day.Format(runIDLayout)
}

const runIDLayout = "2006-01-02"

// ParseRunID reads a run identifier back into the start of that day in loc.
func ParseRunID(id string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(runIDLayout, id, loc)
}

// LogEntry is one line of the run ledger.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Stage   Stage     `json:"step"`
	Message string    `json:"msg"`
}

// RunResult maps a result key (news_count, upload_status, ...) to a human-readable value.
type RunResult map[string]string

// Clone returns an independent copy.
func (r RunResult) Clone() RunResult {
	if r == nil {
		return RunResult{}
	}
	return maps.Clone(r)
}

// RunSnapshot is a read-only copy of the current run for the control surface.
type RunSnapshot struct {
	ID           string     `json:"run_id"`
	AttemptID    string     `json:"attempt_id,omitempty"`
	Status       RunStatus  `json:"status"`
	DryRun       bool       `json:"dry_run"`
	StartStep    Stage      `json:"start_step"`
	EndStep      Stage      `json:"end_step"`
	CurrentStep  Stage      `json:"current_step"`
	TotalSteps   int        `json:"total_steps"`
	StepName     string     `json:"step_name"`
	OutputDir    string     `json:"output_dir,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Log          []LogEntry `json:"log"`
	Results      RunResult  `json:"results"`
	Error        string     `json:"error,omitempty"`
	StopPending  bool       `json:"stop_requested"`
}

// Voiceover is the output of speech synthesis.
type Voiceover struct {
	AudioPath    string `json:"audio_path"`
	SubtitlePath string `json:"subtitle_path"`
}

// VideoMetadata describes an upload.
type VideoMetadata struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Privacy     string     `json:"privacy,omitempty"`
	PublishAt   *time.Time `json:"publish_at,omitempty"`
	PlaylistID  string     `json:"playlist_id,omitempty"`
}

// Publication is the remote identity of an uploaded video.
type Publication struct {
	VideoID string `json:"video_id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
}

// ChannelPost is a cross-post announcing a published video.
type ChannelPost struct {
	Title   string
	URL     string
	Summary string
}
