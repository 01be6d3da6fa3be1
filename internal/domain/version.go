package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// LocalizedText хранит текст на финском и шведском
type LocalizedText struct {
	Fi string `json:"fi,omitempty"`
	Sv string `json:"sv,omitempty"`
}

// Fields - полный снимок редактируемых полей материала (не diff)
type Fields struct {
	Name        LocalizedText       `json:"name" validate:"required"`
	Instruction LocalizedText       `json:"instruction"`
	Content     LocalizedText       `json:"content"`
	Metadata    map[string][]string `json:"metadata,omitempty"`
}

// Clone возвращает глубокую копию полей
func (f Fields) Clone() Fields {
	out := f
	if f.Metadata != nil {
		out.Metadata = make(map[string][]string, len(f.Metadata))
		for k, v := range f.Metadata {
			out.Metadata[k] = slices.Clone(v)
		}
	}
	return out
}

// Equal сравнивает два снимка полей
func (f Fields) Equal(other Fields) bool {
	if f.Name != other.Name || f.Instruction != other.Instruction || f.Content != other.Content {
		return false
	}
	return maps.EqualFunc(f.Metadata, other.Metadata, slices.Equal[[]string])
}

// Value сохраняет поля в JSONB колонку
func (f Fields) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan читает поля из JSONB колонки
func (f *Fields) Scan(src any) error {
	data, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("scan fields: %w", err)
	}
	if data == nil {
		*f = Fields{}
		return nil
	}
	return json.Unmarshal(data, f)
}

// AttachmentRef - ссылка версии на вложение из реестра
type AttachmentRef struct {
	FileKey  string   `json:"file_key" validate:"required"`
	Name     string   `json:"name" validate:"required"`
	Language Language `json:"language" validate:"required,oneof=FI SV"`
}

// AttachmentRefs - упорядоченный набор вложений версии. Хранится по значению:
// изменение набора всегда дает новую версию, старые версии сохраняют свой набор.
type AttachmentRefs []AttachmentRef

// Keys возвращает ключи файлов в порядке набора
func (r AttachmentRefs) Keys() []string {
	keys := make([]string, 0, len(r))
	for _, ref := range r {
		keys = append(keys, ref.FileKey)
	}
	return keys
}

// DuplicateKey возвращает первый повторяющийся ключ, если он есть
func (r AttachmentRefs) DuplicateKey() (string, bool) {
	seen := make(map[string]struct{}, len(r))
	for _, ref := range r {
		if _, ok := seen[ref.FileKey]; ok {
			return ref.FileKey, true
		}
		seen[ref.FileKey] = struct{}{}
	}
	return "", false
}

// Clone возвращает копию набора
func (r AttachmentRefs) Clone() AttachmentRefs {
	if r == nil {
		return AttachmentRefs{}
	}
	return slices.Clone(r)
}

// Value сохраняет набор в JSONB колонку. Пустой набор пишется как [], а не null.
func (r AttachmentRefs) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]AttachmentRef(r))
}

// Scan читает набор из JSONB колонки
func (r *AttachmentRefs) Scan(src any) error {
	data, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("scan attachment refs: %w", err)
	}
	refs := AttachmentRefs{}
	if data != nil {
		if err := json.Unmarshal(data, (*[]AttachmentRef)(&refs)); err != nil {
			return err
		}
	}
	*r = refs
	return nil
}

// Version - неизменяемый снимок материала
type Version struct {
	ContentID      uuid.UUID      `json:"content_id" db:"content_id"`
	VersionNumber  int            `json:"version" db:"version_number"`
	Fields         Fields         `json:"fields" db:"fields"`
	AttachmentRefs AttachmentRefs `json:"attachments" db:"attachment_refs"`
	PublishState   PublishState   `json:"publish_state" db:"publish_state"`
	UpdatedBy      string         `json:"updated_by" db:"updated_by"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// Clone возвращает независимую копию версии
func (v Version) Clone() Version {
	out := v
	out.Fields = v.Fields.Clone()
	out.AttachmentRefs = v.AttachmentRefs.Clone()
	return out
}

// VersionSummary - строка в списке истории версий
type VersionSummary struct {
	VersionNumber int          `json:"version" db:"version_number"`
	PublishState  PublishState `json:"publish_state" db:"publish_state"`
	UpdatedBy     string       `json:"updated_by" db:"updated_by"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
	Current       bool         `json:"current"`
	CanShow       bool         `json:"can_show"`
	CanRestore    bool         `json:"can_restore"`
}

func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", src)
	}
}
