package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrContentNotFound    = errors.New("content not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// StaleWriteError - конфликт оптимистичной блокировки: head уже сдвинулся.
// Клиент должен перечитать head и повторить запрос.
type StaleWriteError struct {
	ContentID uuid.UUID
	Expected  int
	Actual    int
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("stale write on content %s: expected head version %d, actual %d",
		e.ContentID, e.Expected, e.Actual)
}

// VersionNotFoundError - номер версии вне диапазона 0..head
type VersionNotFoundError struct {
	ContentID uuid.UUID
	Version   int
	Head      int
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %d of content %s not found (head version %d)", e.Version, e.ContentID, e.Head)
}

// AttachmentNotFoundError - версия ссылается на ключи, которых нет в реестре
type AttachmentNotFoundError struct {
	FileKeys []string
}

func (e *AttachmentNotFoundError) Error() string {
	return fmt.Sprintf("attachments not found: %s", strings.Join(e.FileKeys, ", "))
}

// InvalidTransitionError - недопустимый переход состояния публикации
type InvalidTransitionError struct {
	From PublishState
	To   PublishState
}

func (e *InvalidTransitionError) Error() string {
	from := string(e.From)
	if from == "" {
		from = "<new>"
	}
	return fmt.Sprintf("invalid publish state transition %s -> %s", from, e.To)
}

// ValidationError - некорректные входные данные
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}
