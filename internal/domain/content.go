package domain

import (
	"time"

	"github.com/google/uuid"
)

// Exam определяет экзамен, к которому относится материал
type Exam string

const (
	ExamSUKO  Exam = "SUKO"
	ExamLD    Exam = "LD"
	ExamPUHVI Exam = "PUHVI"
)

// ContentType определяет тип материала
type ContentType string

const (
	ContentTypeAssignment  ContentType = "ASSIGNMENT"
	ContentTypeInstruction ContentType = "INSTRUCTION"
	ContentTypeCertificate ContentType = "CERTIFICATE"
)

// ContentItem - строка материала с указателем на текущую (head) версию.
// Exam и ContentType задаются при создании и больше не меняются.
type ContentItem struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	Exam         Exam         `json:"exam" db:"exam"`
	ContentType  ContentType  `json:"content_type" db:"content_type"`
	HeadVersion  int          `json:"head_version" db:"head_version"`
	PublishState PublishState `json:"publish_state" db:"publish_state"` // копия состояния head версии
	CreatedBy    string       `json:"created_by" db:"created_by"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// ContentFilter задает фильтр для списка материалов
type ContentFilter struct {
	Exam           *Exam
	ContentType    *ContentType
	PublishState   *PublishState
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// Matches проверяет, подходит ли материал под фильтр
func (f ContentFilter) Matches(item ContentItem) bool {
	if f.Exam != nil && item.Exam != *f.Exam {
		return false
	}
	if f.ContentType != nil && item.ContentType != *f.ContentType {
		return false
	}
	if f.PublishState != nil {
		return item.PublishState == *f.PublishState
	}
	return f.IncludeDeleted || item.PublishState != PublishStateDeleted
}

// ContentDetail - материал вместе со снимком текущей версии
type ContentDetail struct {
	Content ContentItem `json:"content"`
	Head    Version     `json:"head"`
}

// WriteResult представляет результат любой записывающей операции
type WriteResult struct {
	ContentID    uuid.UUID       `json:"id"`
	Version      int             `json:"version"`
	PublishState PublishState    `json:"publish_state"`
	Notification NotificationKey `json:"notification"`
}
