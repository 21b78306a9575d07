// Package audit ведёт журнал обработки вебхуков в текстовом файле.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	appendAttempts = 3
	appendBackoff  = 50 * time.Millisecond
)

// Logger дописывает записи в конец файла журнала. Запись выполняется
// по принципу best effort: ошибка файловой системы не должна ломать
// ответ на вебхук, поэтому после ограниченного числа повторов она
// лишь фиксируется в журнале процесса.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

// NewLogger открывает файл журнала на дозапись, создавая его при
// необходимости.
func NewLogger(path string, logger *zap.Logger) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}

	return &Logger{
		file:   file,
		logger: logger,
	}, nil
}

// Append дописывает текст в журнал. Конкурентные вызовы сериализуются,
// строки разных записей не перемешиваются.
func (l *Logger) Append(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	for attempt := 1; attempt <= appendAttempts; attempt++ {
		if _, err = l.file.WriteString(text); err == nil {
			return
		}
		time.Sleep(appendBackoff)
	}

	l.logger.Warn("failed to write audit log entry",
		zap.Error(err),
		zap.Int("attempts", appendAttempts))
}

// Event записывает факт получения вебхука: тип события, момент времени
// и отформатированное тело запроса.
func (l *Logger) Event(eventType string, payload any) {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		body = []byte(fmt.Sprintf("%v", payload))
	}

	l.Append(fmt.Sprintf("%s at %s:\n%s\n\n",
		eventType, time.Now().UTC().Format(time.RFC3339), body))
}

// Close закрывает файл журнала.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
