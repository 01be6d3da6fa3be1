package domain

import "time"

// Language - язык вложения
type Language string

const (
	LanguageFI Language = "FI"
	LanguageSV Language = "SV"
)

// Valid проверяет, что язык поддерживается
func (l Language) Valid() bool {
	return l == LanguageFI || l == LanguageSV
}

// Attachment - запись реестра вложений. Неизменяема после загрузки.
type Attachment struct {
	FileKey    string    `json:"file_key" db:"file_key"`
	FileName   string    `json:"file_name" db:"file_name"`
	MIMEType   string    `json:"mime_type" db:"mime_type"`
	SizeBytes  int64     `json:"size_bytes" db:"size_bytes"`
	Language   Language  `json:"language" db:"language"`
	UploadedBy string    `json:"uploaded_by" db:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// AttachmentUpload - данные для загрузки нового вложения
type AttachmentUpload struct {
	FileName   string   `validate:"required,max=255"`
	MIMEType   string   `validate:"required"`
	Language   Language `validate:"required,oneof=FI SV"`
	Data       []byte   `validate:"min=1"`
	UploadedBy string   `validate:"required"`
}

// AttachmentObjectKey возвращает ключ объекта в хранилище для вложения
func AttachmentObjectKey(fileKey string) string {
	return "attachments/" + fileKey
}
