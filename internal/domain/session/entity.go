// Package session содержит доменную модель учебного занятия (битакоры).
// Это ядро бизнес-логики: посещаемость, инциденты, записи урока и оценка
// занятия. Здесь нет внешних зависимостей кроме генерации идентификаторов.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/roster"
	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
	"github.com/aula-hub/aula-classroom-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS & ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceState определяет состояние посещаемости студента на занятии.
type AttendanceState string

const (
	// StatePresent - студент присутствует.
	StatePresent AttendanceState = "present"
	// StateAbsent - студент отсутствует.
	StateAbsent AttendanceState = "absent"
	// StateLate - студент опоздал.
	StateLate AttendanceState = "late"
)

// IsValid проверяет, что состояние посещаемости корректно.
func (s AttendanceState) IsValid() bool {
	switch s {
	case StatePresent, StateAbsent, StateLate:
		return true
	default:
		return false
	}
}

// IncidentFlag определяет тип инцидента, фиксируемого независимо от посещаемости.
type IncidentFlag string

const (
	// FlagRestroom - выход в туалет.
	FlagRestroom IncidentFlag = "restroom"
	// FlagInfirmary - посещение медпункта.
	FlagInfirmary IncidentFlag = "infirmary"
	// FlagOther - прочий инцидент.
	FlagOther IncidentFlag = "other"
)

// IsValid проверяет, что флаг инцидента корректен.
func (f IncidentFlag) IsValid() bool {
	switch f {
	case FlagRestroom, FlagInfirmary, FlagOther:
		return true
	default:
		return false
	}
}

// IncidentFlags - независимые булевы флаги инцидентов студента на занятии.
type IncidentFlags struct {
	Restroom  bool `json:"restroom"`
	Infirmary bool `json:"infirmary"`
	Other     bool `json:"other"`
}

// Any возвращает true, если установлен хотя бы один флаг.
func (f IncidentFlags) Any() bool {
	return f.Restroom || f.Infirmary || f.Other
}

// Set устанавливает значение флага по его типу.
func (f *IncidentFlags) Set(flag IncidentFlag, value bool) error {
	switch flag {
	case FlagRestroom:
		f.Restroom = value
	case FlagInfirmary:
		f.Infirmary = value
	case FlagOther:
		f.Other = value
	default:
		return shared.ErrInvalidInput
	}
	return nil
}

// Adequacy определяет оценку достаточности времени на активности занятия.
type Adequacy string

const (
	// AdequacyInsufficient - времени не хватило.
	AdequacyInsufficient Adequacy = "insufficient"
	// AdequacyTight - времени хватило впритык.
	AdequacyTight Adequacy = "tight"
	// AdequacyAdequate - времени было достаточно.
	AdequacyAdequate Adequacy = "adequate"
	// AdequacyExcessive - времени было больше, чем нужно.
	AdequacyExcessive Adequacy = "excessive"
)

// IsValid проверяет, что значение входит в допустимый набор.
func (a Adequacy) IsValid() bool {
	switch a {
	case AdequacyInsufficient, AdequacyTight, AdequacyAdequate, AdequacyExcessive:
		return true
	default:
		return false
	}
}

// Rating - четырёхуровневая оценка одного аспекта занятия.
type Rating string

const (
	RatingPoor      Rating = "poor"
	RatingFair      Rating = "fair"
	RatingGood      Rating = "good"
	RatingExcellent Rating = "excellent"
)

// IsValid проверяет, что оценка входит в допустимый набор.
func (r Rating) IsValid() bool {
	switch r {
	case RatingPoor, RatingFair, RatingGood, RatingExcellent:
		return true
	default:
		return false
	}
}

// Evaluation - пять независимых оценок занятия.
type Evaluation struct {
	Participation Rating `json:"participation"`
	Discipline    Rating `json:"discipline"`
	Objectives    Rating `json:"objectives"`
	Materials     Rating `json:"materials"`
	Climate       Rating `json:"climate"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMENTS
// ══════════════════════════════════════════════════════════════════════════════

// Ограничения на текст комментария.
const (
	MinCommentLen = 3
	MaxCommentLen = 500
)

// Comment - одна запись о студенте в рамках занятия.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidateCommentText проверяет текст комментария: 3-500 символов и хотя бы
// один буквенно-цифровой символ.
func ValidateCommentText(raw string) shared.Result {
	text := strings.TrimSpace(raw)
	runes := []rune(text)
	if len(runes) < MinCommentLen {
		return shared.Fail(fmt.Sprintf("comment must have at least %d characters", MinCommentLen))
	}
	if len(runes) > MaxCommentLen {
		return shared.Fail(fmt.Sprintf("comment must have at most %d characters", MaxCommentLen))
	}

	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return shared.OK(text)
		}
	}
	return shared.Fail("comment must contain at least one alphanumeric character")
}

// NewComment создаёт комментарий с валидацией текста.
func NewComment(text, commentType string) (Comment, error) {
	res := ValidateCommentText(text)
	if !res.Valid {
		return Comment{}, shared.WrapError("session", "NewComment", shared.ErrInvalidInput, res.Message, nil)
	}

	return Comment{
		ID:        uuid.NewString(),
		Text:      res.Value,
		Type:      commentType,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT RECORD
// ══════════════════════════════════════════════════════════════════════════════

// StudentRecord - запись одного студента в рамках занятия.
// Мутабельна, пока занятие открыто.
type StudentRecord struct {
	State    AttendanceState `json:"state"`
	Flags    IncidentFlags   `json:"flags"`
	Comments []Comment       `json:"comments,omitempty"`
}

// NewStudentRecord создаёт запись с состоянием "присутствует" по умолчанию.
func NewStudentRecord() *StudentRecord {
	return &StudentRecord{State: StatePresent}
}

// HasIncident возвращает true, если студент не был отмечен присутствующим,
// установлен любой флаг или есть хотя бы один комментарий.
func (r *StudentRecord) HasIncident() bool {
	return r.State != StatePresent || r.Flags.Any() || len(r.Comments) > 0
}

// Clone создаёт глубокую копию записи.
func (r *StudentRecord) Clone() *StudentRecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Comments = append([]Comment(nil), r.Comments...)
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// ORDERED STUDENT SET
// ══════════════════════════════════════════════════════════════════════════════

// StudentSet - упорядоченный контейнер имя→запись. Порядок итерации - порядок
// вставки; JSON-сериализация сохраняет этот порядок в обе стороны.
type StudentSet struct {
	names   []string
	records map[string]*StudentRecord
}

// NewStudentSet создаёт контейнер из списка имён в заданном порядке.
// Дубликаты схлопываются в первую позицию.
func NewStudentSet(names []string) *StudentSet {
	set := &StudentSet{records: make(map[string]*StudentRecord, len(names))}
	for _, name := range names {
		if _, dup := set.records[name]; dup {
			continue
		}
		set.names = append(set.names, name)
		set.records[name] = NewStudentRecord()
	}
	return set
}

// Len возвращает число студентов.
func (s *StudentSet) Len() int {
	return len(s.names)
}

// Names возвращает имена в порядке вставки.
func (s *StudentSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Get возвращает запись студента по имени.
func (s *StudentSet) Get(name string) (*StudentRecord, bool) {
	rec, ok := s.records[name]
	return rec, ok
}

// Put заменяет запись студента, если студент входит в набор.
// Состав набора фиксируется при создании и больше не меняется.
func (s *StudentSet) Put(name string, record *StudentRecord) bool {
	if _, ok := s.records[name]; !ok {
		return false
	}
	s.records[name] = record
	return true
}

// Each обходит записи в порядке вставки.
func (s *StudentSet) Each(fn func(name string, record *StudentRecord)) {
	for _, name := range s.names {
		fn(name, s.records[name])
	}
}

// Clone создаёт глубокую копию набора.
func (s *StudentSet) Clone() *StudentSet {
	if s == nil {
		return nil
	}
	clone := &StudentSet{
		names:   append([]string(nil), s.names...),
		records: make(map[string]*StudentRecord, len(s.records)),
	}
	for name, rec := range s.records {
		clone.records[name] = rec.Clone()
	}
	return clone
}

// MarshalJSON сериализует набор как JSON-объект в порядке вставки.
func (s *StudentSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(s.records[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON читает JSON-объект, сохраняя порядок ключей документа.
func (s *StudentSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("students: expected JSON object")
	}

	s.names = nil
	s.records = make(map[string]*StudentRecord)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("students: expected string key")
		}

		var record StudentRecord
		if err := dec.Decode(&record); err != nil {
			return fmt.Errorf("students: record for %q: %w", name, err)
		}

		if _, dup := s.records[name]; !dup {
			s.names = append(s.names, name)
		}
		s.records[name] = &record
	}

	// Закрывающая скобка.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// NARRATIVE
// ══════════════════════════════════════════════════════════════════════════════

// MaxNarrativeLen - предел длины каждого свободного текстового поля в символах.
const MaxNarrativeLen = 1000

// Narrative - пять свободных текстовых полей журнала занятия.
type Narrative struct {
	Topic        string `json:"topic"`
	Activities   string `json:"activities"`
	Achievements string `json:"achievements"`
	Difficulties string `json:"difficulties"`
	Observations string `json:"observations"`
}

// ClampNarrativeText нормализует свободный текст: обрезает пробелы и
// ограничивает длину. Текст не отклоняется, а усекается.
func ClampNarrativeText(raw string) string {
	text := strings.TrimSpace(raw)
	runes := []rune(text)
	if len(runes) > MaxNarrativeLen {
		return string(runes[:MaxNarrativeLen])
	}
	return text
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION
// ══════════════════════════════════════════════════════════════════════════════

// MaxSessionAge - насколько старой может быть дата занятия.
const MaxSessionAge = 365 * 24 * time.Hour

// Session - агрегат одного занятия. Идентичность - пара (группа, дата).
// Состав студентов фиксируется при создании из снимка ростера; последующие
// правки ростера не меняют существующие занятия.
type Session struct {
	ID        string      `json:"id"`
	Group     string      `json:"group"`
	Date      string      `json:"date"`
	StartTime string      `json:"startTime"`
	Students  *StudentSet `json:"students"`

	Narrative    Narrative  `json:"narrative"`
	ActivityTime Adequacy   `json:"activityTimeAdequacy"`
	Evaluation   Evaluation `json:"evaluation"`

	CreatedAt time.Time  `json:"createdAt"`
	LastSaved *time.Time `json:"lastSaved"`
}

// ValidateDate проверяет дату занятия: формат YYYY-MM-DD, не в будущем и
// не старше одного года.
func ValidateDate(raw string) shared.Result {
	date := strings.TrimSpace(raw)
	t, err := timeutil.ParseDate(date)
	if err != nil {
		return shared.Fail("date must be YYYY-MM-DD")
	}
	if timeutil.IsFutureDate(t) {
		return shared.Fail("date cannot be in the future")
	}
	if timeutil.IsOlderThan(t, MaxSessionAge) {
		return shared.Fail("date cannot be older than one year")
	}
	return shared.OK(date)
}

// ValidateStartTime проверяет время начала занятия в формате HH:MM (24 часа).
func ValidateStartTime(raw string) shared.Result {
	start := strings.TrimSpace(raw)
	if !timeutil.IsValidClock(start) {
		return shared.Fail("start time must be HH:MM (24h)")
	}
	return shared.OK(start)
}

// New создаёт новое занятие из снимка ростера. Все три входа валидируются;
// каждый студент получает запись с состоянием "присутствует".
func New(group, date, startTime string, rosterNames []string) (*Session, error) {
	res := roster.ValidateGroupName(group)
	if !res.Valid {
		return nil, shared.WrapError("session", "New", shared.ErrInvalidFormat, res.Message, nil)
	}
	group = res.Value

	res = ValidateDate(date)
	if !res.Valid {
		return nil, shared.WrapError("session", "New", shared.ErrInvalidFormat, res.Message, nil)
	}
	date = res.Value

	res = ValidateStartTime(startTime)
	if !res.Valid {
		return nil, shared.WrapError("session", "New", shared.ErrInvalidFormat, res.Message, nil)
	}
	startTime = res.Value

	return &Session{
		ID:        uuid.NewString(),
		Group:     group,
		Date:      date,
		StartTime: startTime,
		Students:  NewStudentSet(rosterNames),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Key возвращает ключ хранения занятия.
func Key(group, date string) string {
	return fmt.Sprintf("session_%s_%s", group, date)
}

// StorageKey возвращает ключ хранения этого занятия.
func (s *Session) StorageKey() string {
	return Key(s.Group, s.Date)
}

// MergeStored накладывает ранее сохранённые поля на свежесозданное занятие.
// Состав студентов определяется свежим снимком ростера (новая форма ростера
// выигрывает); записи, нарратив и оценки из хранилища сохраняются для тех
// полей, которые там присутствуют.
func (s *Session) MergeStored(stored *Session) {
	if stored == nil {
		return
	}

	if stored.ID != "" {
		s.ID = stored.ID
	}
	if !stored.CreatedAt.IsZero() {
		s.CreatedAt = stored.CreatedAt
	}
	s.LastSaved = stored.LastSaved

	if stored.StartTime != "" {
		s.StartTime = stored.StartTime
	}

	s.Narrative = stored.Narrative
	if stored.ActivityTime != "" {
		s.ActivityTime = stored.ActivityTime
	}
	s.Evaluation = stored.Evaluation

	if stored.Students != nil {
		for _, name := range s.Students.Names() {
			if rec, ok := stored.Students.Get(name); ok {
				s.Students.Put(name, rec.Clone())
			}
		}
	}
}

// Validate проверяет структурную целостность занятия, прочитанного из
// хранилища. Любая ошибка означает, что запись повреждена и не должна
// замещать текущее состояние.
func (s *Session) Validate() error {
	if s.Group == "" || !roster.GroupName(s.Group).IsValid() {
		return shared.WrapError("session", "Validate", shared.ErrStructural, "missing or invalid group", nil)
	}
	if _, err := timeutil.ParseDate(s.Date); err != nil {
		return shared.WrapError("session", "Validate", shared.ErrStructural, "missing or invalid date", nil)
	}
	if s.Students == nil || s.Students.Len() == 0 {
		return shared.WrapError("session", "Validate", shared.ErrStructural, "missing students", nil)
	}

	structuralErr := func(msg string) error {
		return shared.WrapError("session", "Validate", shared.ErrStructural, msg, nil)
	}

	var bad error
	s.Students.Each(func(name string, rec *StudentRecord) {
		if bad != nil {
			return
		}
		if rec == nil {
			bad = structuralErr(fmt.Sprintf("student %q has no record", name))
			return
		}
		if !rec.State.IsValid() {
			bad = structuralErr(fmt.Sprintf("student %q has invalid attendance state %q", name, rec.State))
		}
	})
	if bad != nil {
		return bad
	}

	if s.ActivityTime != "" && !s.ActivityTime.IsValid() {
		return structuralErr("invalid activity time adequacy")
	}
	for _, r := range []Rating{
		s.Evaluation.Participation, s.Evaluation.Discipline, s.Evaluation.Objectives,
		s.Evaluation.Materials, s.Evaluation.Climate,
	} {
		if r != "" && !r.IsValid() {
			return structuralErr("invalid evaluation rating")
		}
	}
	return nil
}

// SetAttendance выставляет состояние посещаемости студента.
func (s *Session) SetAttendance(name string, state AttendanceState) error {
	if !state.IsValid() {
		return shared.WrapError("session", "SetAttendance", shared.ErrValueOutOfRange,
			fmt.Sprintf("unknown attendance state %q", state), nil)
	}
	rec, ok := s.Students.Get(name)
	if !ok {
		return shared.WrapError("session", "SetAttendance", shared.ErrNotFound,
			fmt.Sprintf("student %q not in session", name), nil)
	}
	rec.State = state
	return nil
}

// SetIncidentFlag выставляет флаг инцидента студента.
func (s *Session) SetIncidentFlag(name string, flag IncidentFlag, value bool) error {
	if !flag.IsValid() {
		return shared.WrapError("session", "SetIncidentFlag", shared.ErrValueOutOfRange,
			fmt.Sprintf("unknown incident flag %q", flag), nil)
	}
	rec, ok := s.Students.Get(name)
	if !ok {
		return shared.WrapError("session", "SetIncidentFlag", shared.ErrNotFound,
			fmt.Sprintf("student %q not in session", name), nil)
	}
	return rec.Flags.Set(flag, value)
}

// AddComment добавляет комментарий к записи студента.
func (s *Session) AddComment(name, text, commentType string) (Comment, error) {
	rec, ok := s.Students.Get(name)
	if !ok {
		return Comment{}, shared.WrapError("session", "AddComment", shared.ErrNotFound,
			fmt.Sprintf("student %q not in session", name), nil)
	}

	comment, err := NewComment(text, commentType)
	if err != nil {
		return Comment{}, err
	}

	rec.Comments = append(rec.Comments, comment)
	return comment, nil
}

// Tally - сводка посещаемости по текущему состоянию занятия в памяти.
type Tally struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Total   int `json:"total"`
}

// AttendanceTally подсчитывает текущие состояния студентов в памяти
// (не историю).
func (s *Session) AttendanceTally() Tally {
	var t Tally
	s.Students.Each(func(_ string, rec *StudentRecord) {
		t.Total++
		switch rec.State {
		case StateAbsent:
			t.Absent++
		case StateLate:
			t.Late++
		default:
			t.Present++
		}
	})
	return t
}

// IncidentView - студент с инцидентом для экспортёра отчёта.
type IncidentView struct {
	Name     string          `json:"name"`
	State    AttendanceState `json:"state"`
	Flags    IncidentFlags   `json:"flags"`
	Comments []Comment       `json:"comments,omitempty"`
}

// StudentsWithIncidents возвращает студентов, чьё состояние отлично от
// "присутствует", либо установлен любой флаг, либо есть комментарии.
func (s *Session) StudentsWithIncidents() []IncidentView {
	var out []IncidentView
	s.Students.Each(func(name string, rec *StudentRecord) {
		if !rec.HasIncident() {
			return
		}
		out = append(out, IncidentView{
			Name:     name,
			State:    rec.State,
			Flags:    rec.Flags,
			Comments: append([]Comment(nil), rec.Comments...),
		})
	})
	return out
}

// Clone создаёт глубокую копию занятия.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Students = s.Students.Clone()
	if s.LastSaved != nil {
		saved := *s.LastSaved
		clone.LastSaved = &saved
	}
	return &clone
}

// String возвращает строковое представление для логирования.
func (s *Session) String() string {
	return fmt.Sprintf("Session{Group: %s, Date: %s, Students: %d}", s.Group, s.Date, s.Students.Len())
}
