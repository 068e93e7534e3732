package session

import (
	"fmt"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIELD UPDATE COMMANDS
// Вместо диспетчеризации по строковым именам полей обновления представлены
// замкнутым набором команд, валидируемых при создании.
// ══════════════════════════════════════════════════════════════════════════════

// NarrativeFieldName - имя одного из пяти свободных текстовых полей.
type NarrativeFieldName string

const (
	FieldTopic        NarrativeFieldName = "topic"
	FieldActivities   NarrativeFieldName = "activities"
	FieldAchievements NarrativeFieldName = "achievements"
	FieldDifficulties NarrativeFieldName = "difficulties"
	FieldObservations NarrativeFieldName = "observations"
)

// IsValid проверяет имя текстового поля.
func (n NarrativeFieldName) IsValid() bool {
	switch n {
	case FieldTopic, FieldActivities, FieldAchievements, FieldDifficulties, FieldObservations:
		return true
	default:
		return false
	}
}

// EvaluationAspect - имя одного из пяти оцениваемых аспектов занятия.
type EvaluationAspect string

const (
	AspectParticipation EvaluationAspect = "participation"
	AspectDiscipline    EvaluationAspect = "discipline"
	AspectObjectives    EvaluationAspect = "objectives"
	AspectMaterials     EvaluationAspect = "materials"
	AspectClimate       EvaluationAspect = "climate"
)

// IsValid проверяет имя аспекта оценки.
func (a EvaluationAspect) IsValid() bool {
	switch a {
	case AspectParticipation, AspectDiscipline, AspectObjectives, AspectMaterials, AspectClimate:
		return true
	default:
		return false
	}
}

// FieldUpdate - команда обновления одного поля занятия.
// Конструкторы гарантируют, что Apply не может получить невалидную команду.
type FieldUpdate interface {
	// Apply применяет команду к занятию.
	Apply(s *Session) error

	// String возвращает описание команды для логирования.
	String() string

	sealed()
}

// ─────────────────────────────────────────────────────────────────────────────
// Narrative update
// ─────────────────────────────────────────────────────────────────────────────

// NarrativeUpdate обновляет одно свободное текстовое поле.
// Текст усекается до MaxNarrativeLen и обрезается по пробелам, не отклоняется.
type NarrativeUpdate struct {
	field NarrativeFieldName
	text  string
}

// NewNarrativeUpdate создаёт команду обновления текстового поля.
func NewNarrativeUpdate(field NarrativeFieldName, text string) (NarrativeUpdate, error) {
	if !field.IsValid() {
		return NarrativeUpdate{}, shared.WrapError("session", "NewNarrativeUpdate",
			shared.ErrInvalidInput, fmt.Sprintf("unknown narrative field %q", field), nil)
	}
	return NarrativeUpdate{field: field, text: ClampNarrativeText(text)}, nil
}

// Apply реализует FieldUpdate.
func (u NarrativeUpdate) Apply(s *Session) error {
	switch u.field {
	case FieldTopic:
		s.Narrative.Topic = u.text
	case FieldActivities:
		s.Narrative.Activities = u.text
	case FieldAchievements:
		s.Narrative.Achievements = u.text
	case FieldDifficulties:
		s.Narrative.Difficulties = u.text
	case FieldObservations:
		s.Narrative.Observations = u.text
	default:
		return shared.ErrUnknownField
	}
	return nil
}

// String реализует FieldUpdate.
func (u NarrativeUpdate) String() string {
	return fmt.Sprintf("narrative(%s)", u.field)
}

func (NarrativeUpdate) sealed() {}

// ─────────────────────────────────────────────────────────────────────────────
// Evaluation update
// ─────────────────────────────────────────────────────────────────────────────

// EvaluationUpdate выставляет оценку одного аспекта занятия.
type EvaluationUpdate struct {
	aspect EvaluationAspect
	rating Rating
}

// NewEvaluationUpdate создаёт команду оценки аспекта.
// Оценка обязана входить в допустимый набор, иначе команда отклоняется.
func NewEvaluationUpdate(aspect EvaluationAspect, rating Rating) (EvaluationUpdate, error) {
	if !aspect.IsValid() {
		return EvaluationUpdate{}, shared.WrapError("session", "NewEvaluationUpdate",
			shared.ErrInvalidInput, fmt.Sprintf("unknown evaluation aspect %q", aspect), nil)
	}
	if !rating.IsValid() {
		return EvaluationUpdate{}, shared.WrapError("session", "NewEvaluationUpdate",
			shared.ErrValueOutOfRange, fmt.Sprintf("rating %q is not an allowed option", rating), nil)
	}
	return EvaluationUpdate{aspect: aspect, rating: rating}, nil
}

// Apply реализует FieldUpdate.
func (u EvaluationUpdate) Apply(s *Session) error {
	switch u.aspect {
	case AspectParticipation:
		s.Evaluation.Participation = u.rating
	case AspectDiscipline:
		s.Evaluation.Discipline = u.rating
	case AspectObjectives:
		s.Evaluation.Objectives = u.rating
	case AspectMaterials:
		s.Evaluation.Materials = u.rating
	case AspectClimate:
		s.Evaluation.Climate = u.rating
	default:
		return shared.ErrUnknownField
	}
	return nil
}

// String реализует FieldUpdate.
func (u EvaluationUpdate) String() string {
	return fmt.Sprintf("evaluation(%s)", u.aspect)
}

func (EvaluationUpdate) sealed() {}

// ─────────────────────────────────────────────────────────────────────────────
// Activity time update
// ─────────────────────────────────────────────────────────────────────────────

// ActivityTimeUpdate выставляет оценку достаточности времени занятия.
type ActivityTimeUpdate struct {
	value Adequacy
}

// NewActivityTimeUpdate создаёт команду оценки достаточности времени.
func NewActivityTimeUpdate(value Adequacy) (ActivityTimeUpdate, error) {
	if !value.IsValid() {
		return ActivityTimeUpdate{}, shared.WrapError("session", "NewActivityTimeUpdate",
			shared.ErrValueOutOfRange, fmt.Sprintf("adequacy %q is not an allowed option", value), nil)
	}
	return ActivityTimeUpdate{value: value}, nil
}

// Apply реализует FieldUpdate.
func (u ActivityTimeUpdate) Apply(s *Session) error {
	s.ActivityTime = u.value
	return nil
}

// String реализует FieldUpdate.
func (u ActivityTimeUpdate) String() string {
	return fmt.Sprintf("activityTime(%s)", u.value)
}

func (ActivityTimeUpdate) sealed() {}
