package ingest

// CallbackMessage is the payload the extraction worker publishes when it has
// finished (or given up on) an upload.
type CallbackMessage struct {
	UploadID string        `json:"upload_id"`
	Status   string        `json:"status"`
	Data     *CallbackData `json:"data,omitempty"`
	Error    string        `json:"error,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

const (
	callbackStatusSuccess = "success"
	callbackStatusFailed  = "failed"
)

type CallbackData struct {
	TestSetID int64           `json:"test_set_id"`
	Groups    []CallbackGroup `json:"groups"`
}

type CallbackGroup struct {
	GroupOrder      int                `json:"group_order"`
	Part            string             `json:"part"`
	AudioTranscript string             `json:"audio_transcript,omitempty"`
	Questions       []CallbackQuestion `json:"questions"`
}

type CallbackQuestion struct {
	Number  int              `json:"number"`
	Text    string           `json:"text"`
	Answers []CallbackAnswer `json:"answers"`
}

type CallbackAnswer struct {
	Content   string `json:"content"`
	Order     int    `json:"order"`
	IsCorrect bool   `json:"is_correct"`
}
