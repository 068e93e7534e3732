package session

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем занятий.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции хранения занятий.
type Repository interface {
	// Save записывает занятие под его ключом (session_{group}_{date}).
	Save(ctx context.Context, s *Session) error

	// Load читает занятие по идентичности (группа, дата).
	// Возвращает shared.ErrSessionNotFound, если занятия нет, и
	// shared.ErrSessionCorrupt, если запись не проходит структурную проверку.
	Load(ctx context.Context, group, date string) (*Session, error)

	// Delete удаляет сохранённое занятие.
	// Возвращает shared.ErrSessionNotFound, если занятия нет.
	Delete(ctx context.Context, group, date string) error

	// Exists сообщает, есть ли сохранённое занятие с такой идентичностью.
	Exists(ctx context.Context, group, date string) (bool, error)
}

// Source отдаёт все сохранённые занятия для пересчёта статистики.
// Отдельный узкий интерфейс, чтобы движок статистики не зависел от записи.
type Source interface {
	// SavedSessions возвращает все занятия, которые удалось десериализовать.
	// Повреждённые записи пропускаются и логируются, а не роняют пересчёт;
	// вторым значением возвращается число пропущенных записей.
	SavedSessions(ctx context.Context) ([]*Session, int, error)
}
