package patch_migrator

import (
	"io"
	"log/slog"
	"strings"
)

// ManagerOption настройка PatchManager, передается в NewPatchManager.
type ManagerOption func(*PatchManager)

// WithLogger задает логгер управляющего. По умолчанию в stderr пишутся только ошибки.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *PatchManager) {
		m.logger = logger
	}
}

// WithLogWriter пишет лог в текстовом виде с уровнем info в w, например в logrus.StandardLogger().Writer().
func WithLogWriter(w io.Writer) ManagerOption {
	return func(m *PatchManager) {
		m.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// WithConcurrency ограничивает число моделей, мигрируемых одновременно. Ноль или отрицательное
// значение снимает ограничение.
func WithConcurrency(limit int) ManagerOption {
	return func(m *PatchManager) {
		m.concurrency = limit
	}
}

// WithTolerantPrefixes заменяет ключевые слова, с которых начинаются запросы, чьи ошибки игнорируются.
// Сравнение с первым словом запроса выполняется без учета регистра.
func WithTolerantPrefixes(prefixes ...string) ManagerOption {
	return func(m *PatchManager) {
		m.tolerantPrefixes = make([]string, 0, len(prefixes))
		for _, prefix := range prefixes {
			prefix = strings.ToLower(strings.TrimSpace(prefix))
			if prefix != "" {
				m.tolerantPrefixes = append(m.tolerantPrefixes, prefix)
			}
		}
	}
}
