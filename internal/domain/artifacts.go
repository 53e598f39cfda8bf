package domain

// File names inside a run's date-partitioned output directory.
const (
	ArticlesFile    = "raw_articles.json"
	ScriptFile      = "script_data.json"
	ScriptTextFile  = "script.txt"
	VoiceoverFile   = "voiceover.mp3"
	SubtitlesFile   = "subtitles.vtt"
	VideoFile       = "final_video.mp4"
	ShortFile       = "short_clip.mp4"
	ThumbnailFile   = "thumbnail.png"
	PublicationFile = "publish_result.json"
	ResultsFile     = "pipeline_results.json"
	DebugDumpFile   = "failed_response.txt"
)

// Result keys of the run summary.
const (
	ResultNewsCount  = "news_count"
	ResultStoryCount = "story_count"
	ResultVoiceover  = "voiceover_status"
	ResultVideo      = "video_status"
	ResultThumbnail  = "thumbnail_status"
	ResultUpload     = "upload_status"
	ResultYouTubeURL = "youtube_url"
	ResultShort      = "short_status"
	ResultTelegram   = "telegram_status"
	ResultNotify     = "notify_status"
)

// Result values shared by several stages.
const (
	StatusDone          = "done"
	StatusSkippedDryRun = "skipped (dry run)"
	StatusNotConfigured = "skipped (not configured)"
)

// Degraded formats the result value of an auxiliary step that failed.
func Degraded(err error) string {
	return "degraded: " + err.Error()
}
