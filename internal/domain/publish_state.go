package domain

// PublishState - состояние публикации версии
type PublishState string

const (
	PublishStateDraft     PublishState = "DRAFT"
	PublishStatePublished PublishState = "PUBLISHED"
	PublishStateDeleted   PublishState = "DELETED" // терминальное
)

// Valid проверяет, что состояние известно
func (s PublishState) Valid() bool {
	switch s {
	case PublishStateDraft, PublishStatePublished, PublishStateDeleted:
		return true
	}
	return false
}

// IsTerminal сообщает, что из состояния нет переходов
func (s PublishState) IsTerminal() bool {
	return s == PublishStateDeleted
}

// NotificationKey - ключ уведомления, который показывает клиент после записи
type NotificationKey string

const (
	NotificationCreated         NotificationKey = "content.created"
	NotificationDraftSaved      NotificationKey = "content.draft-saved"
	NotificationPublished       NotificationKey = "content.published"
	NotificationReturnedToDraft NotificationKey = "content.returned-to-draft"
	NotificationPublishedSaved  NotificationKey = "content.published-saved"
	NotificationDeleted         NotificationKey = "content.deleted"
)

// Transition - переход состояния публикации. From пустой при создании материала.
type Transition struct {
	From PublishState
	To   PublishState
}

// IsCreation сообщает, что переход создает материал
func (t Transition) IsCreation() bool {
	return t.From == ""
}

// Check проверяет, разрешен ли переход
func (t Transition) Check() error {
	if !t.To.Valid() {
		return &InvalidTransitionError{From: t.From, To: t.To}
	}
	if t.IsCreation() {
		// Нельзя создать сразу удаленный материал
		if t.To == PublishStateDeleted {
			return &InvalidTransitionError{From: t.From, To: t.To}
		}
		return nil
	}
	if !t.From.Valid() || t.From.IsTerminal() {
		return &InvalidTransitionError{From: t.From, To: t.To}
	}
	return nil
}

// Notification возвращает ключ уведомления для перехода
func (t Transition) Notification() NotificationKey {
	switch {
	case t.IsCreation():
		return NotificationCreated
	case t.To == PublishStateDeleted:
		return NotificationDeleted
	case t.From == PublishStateDraft && t.To == PublishStatePublished:
		return NotificationPublished
	case t.From == PublishStatePublished && t.To == PublishStateDraft:
		return NotificationReturnedToDraft
	case t.To == PublishStatePublished:
		return NotificationPublishedSaved
	default:
		return NotificationDraftSaved
	}
}

// Kind возвращает короткое имя перехода для метрик и логов
func (t Transition) Kind() string {
	switch t.Notification() {
	case NotificationCreated:
		return "create"
	case NotificationDeleted:
		return "delete"
	case NotificationPublished:
		return "submit"
	case NotificationReturnedToDraft:
		return "return_to_draft"
	default:
		return "edit"
	}
}
