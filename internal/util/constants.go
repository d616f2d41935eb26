package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 会话中保存的键
const (
	SessionKeyPageView = "page_view_instance_id"
	SessionKeyLiveTest = "live_test_instance_id"
	SessionKeyStudent  = "student_id"
)

// gin.Context 中保存的键
const (
	ContextKeyUser         = "user"
	ContextKeyStudent      = "student"
	ContextKeySessionToken = "session_token"
)

const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

var AllowedDocumentTypes = []string{MimePDF, MimeJPEG, MimePNG}

const MaxDocumentSize = 10 << 20
