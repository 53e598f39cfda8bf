package domain

import "fmt"

// Stage identifies one step of the fixed eight-step workflow.
type Stage int

const (
	StageFetch Stage = iota + 1
	StageScript
	StageVoice
	StageVideo
	StageThumbnail
	StagePublish
	StageCrossPost
	StageNotify
)

// FirstStage and LastStage bound every valid step range.
const (
	FirstStage = StageFetch
	LastStage  = StageNotify
)

var stageNames = map[Stage]string{
	StageFetch:     "fetch",
	StageScript:    "script",
	StageVoice:     "voice",
	StageVideo:     "video",
	StageThumbnail: "thumbnail",
	StagePublish:   "publish",
	StageCrossPost: "cross-post",
	StageNotify:    "notify",
}

var stageLabels = map[Stage]string{
	StageFetch:     "Fetching news headlines",
	StageScript:    "Generating script",
	StageVoice:     "Generating voiceover",
	StageVideo:     "Building video",
	StageThumbnail: "Generating thumbnail",
	StagePublish:   "Publishing video",
	StageCrossPost: "Cross-posting",
	StageNotify:    "Sending notification",
}

// Valid reports whether s is within 1..8.
func (s Stage) Valid() bool {
	return s >= FirstStage && s <= LastStage
}

// Name returns the short machine name of the stage.
func (s Stage) Name() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage-%d", int(s))
}

// Label returns the human label of the stage.
func (s Stage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return s.Name()
}

// Irreversible marks stages that act on external platforms and are skipped on dry runs.
func (s Stage) Irreversible() bool {
	return s == StagePublish || s == StageCrossPost || s == StageNotify
}

func (s Stage) String() string {
	return fmt.Sprintf("%d (%s)", int(s), s.Name())
}

// StepRange is an inclusive range of stages.
type StepRange struct {
	Start Stage `json:"start_step"`
	End   Stage `json:"end_step"`
}

// FullRange covers every stage.
func FullRange() StepRange {
	return StepRange{Start: FirstStage, End: LastStage}
}

// Validate rejects ranges outside 1..8 or with start after end.
func (r StepRange) Validate() error {
	if !r.Start.Valid() || !r.End.Valid() {
		return fmt.Errorf("step range %d-%d outside %d-%d", r.Start, r.End, FirstStage, LastStage)
	}
	if r.Start > r.End {
		return fmt.Errorf("step range start %d is after end %d", r.Start, r.End)
	}
	return nil
}

// Stages lists the stages in the range in execution order.
func (r StepRange) Stages() []Stage {
	var out []Stage
	for s := r.Start; s <= r.End; s++ {
		out = append(out, s)
	}
	return out
}
