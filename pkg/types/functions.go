package types

// 以下为 /functions/v1 下各个 edge function 的请求体，字段命名沿用前端约定

type GenerateNotebookContentRequest struct {
	NotebookID string     `json:"notebookId"`
	FilePath   string     `json:"filePath"`
	SourceType SourceType `json:"sourceType"`
}

type ProcessAdditionalSourcesRequest struct {
	Type       SourceType `json:"type"`
	NotebookID string     `json:"notebookId"`
	URLs       []string   `json:"urls"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	SourceIDs  []string   `json:"sourceIds"`
	Timestamp  string     `json:"timestamp"`
}

type GenerateAudioOverviewRequest struct {
	NotebookID string `json:"notebookId"`
}

type AudioGenerationCallbackRequest struct {
	NotebookID string `json:"notebook_id"`
	AudioURL   string `json:"audio_url"`
	Status     string `json:"status"`
	Error      string `json:"error"`
}

const AUDIO_CALLBACK_STATUS_SUCCESS = "success"

type ProcessDocumentRequest struct {
	SourceID   string     `json:"sourceId"`
	FilePath   string     `json:"filePath"`
	SourceType SourceType `json:"sourceType"`
}

type ProcessDocumentCallbackRequest struct {
	SourceID    string           `json:"source_id"`
	Content     *string          `json:"content"`
	Summary     *string          `json:"summary"`
	Title       *string          `json:"title"`
	DisplayName *string          `json:"display_name"`
	Status      ProcessingStatus `json:"status"`
	Error       string           `json:"error"`
}

type RefreshAudioURLRequest struct {
	NotebookID string `json:"notebookId"`
}

type RefreshAudioURLResponse struct {
	Success   bool   `json:"success"`
	AudioURL  string `json:"audioUrl"`
	ExpiresAt string `json:"expiresAt"`
}

type GenerateNoteTitleRequest struct {
	Content string `json:"content"`
}

type GenerateNotebookContentResponse struct {
	Success          bool     `json:"success"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Icon             string   `json:"icon"`
	Color            string   `json:"color"`
	ExampleQuestions []string `json:"exampleQuestions"`
	Message          string   `json:"message"`
}
