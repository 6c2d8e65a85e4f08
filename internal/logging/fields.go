package logging

// Structured logging keys shared by the engine's subsystems. Console and
// stream handlers key their display logic off these, so emit them rather
// than ad-hoc variants.
const (
	// FieldEventType tags a log line with a machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator-facing next step for a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact states what a warning means for the running channel.
	FieldImpact = "impact"
	// FieldErrorCode carries a stable failure identifier.
	FieldErrorCode = "error_code"
	// FieldMediaID is the library entry identifier.
	FieldMediaID = "media_id"
	// FieldProgressTime is the transcoded output timestamp of a session.
	FieldProgressTime = "progress_time"
	// FieldProgressSpeed is the realtime multiplier reported by the encoder.
	FieldProgressSpeed = "progress_speed"
	// FieldProgressBitrate is the current output bitrate of a session.
	FieldProgressBitrate = "progress_bitrate"
)
