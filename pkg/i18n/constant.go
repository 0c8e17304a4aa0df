package i18n

var ALLOW_LANG = map[string]bool{
	"en":    true,
	"zh-CN": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL          = "error.internal"
	ERROR_NOT_FOUND         = "error.notfound"
	ERROR_INVALIDARGUMENT   = "error.invalidargument"
	ERROR_PERMISSION_DENIED = "error.permission.denied"
	ERROR_UNAUTHORIZED      = "error.unauthorized"
	ERROR_FORBIDDEN         = "error.forbidden"
	ERROR_TOO_MANY_REQUESTS = "error.tooManyRequests"
	ERROR_INVALID_TOKEN     = "error.invalid.token"

	ERROR_NOTEBOOK_NOT_FOUND      = "error.notebook.notfound"
	ERROR_SOURCE_NOT_FOUND        = "error.source.notfound"
	ERROR_NOTE_NOT_FOUND          = "error.note.notfound"
	ERROR_NOTE_READONLY           = "error.note.readonly"
	ERROR_SOURCE_TYPE_UNSUPPORTED = "error.source.type.unsupported"
	ERROR_FILE_TOO_LARGE          = "error.file.too_large"
	ERROR_GENERATION_IN_PROGRESS  = "error.generation.in_progress"
	ERROR_WEBHOOK_NOT_CONFIGURED  = "error.webhook.not_configured"
	ERROR_WEBHOOK_FAILED          = "error.webhook.failed"
	ERROR_AUDIO_NOT_READY         = "error.audio.not_ready"
	ERROR_AUDIO_UNAVAILABLE       = "error.audio.unavailable"
	ERROR_STORAGE_UNAVAILABLE     = "error.storage.unavailable"
	ERROR_VIEWER_SESSION_EXPIRED  = "error.viewer.session_expired"
)
