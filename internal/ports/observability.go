package ports

import "github.com/ghalamif/DAOGuard/internal/domain"

type Observability interface {
	LogDebug(msg string, fields ...Field)
	LogInfo(msg string, fields ...Field)
	LogWarn(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)
	SetGauge(name string, v float64)

	RecordVerdict(sender domain.SenderID, v domain.Verdict)
	RecordDecodeFailure(ev *domain.Event, err error)
}

type Field struct {
	Key   string
	Value any
}
