package eventbus

import "fmt"

const (
	// SubjectPrefix is the canonical prefix for saga lifecycle events.
	SubjectPrefix = "sagaline.v1.saga"
)

// EventSubject returns the canonical subject for one saga event type.
func EventSubject(sagaName, eventType string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, sanitizeSegment(sagaName), sanitizeSegment(eventType))
}

// SagaWildcardSubject returns the wildcard subject matching every event of
// one saga type.
func SagaWildcardSubject(sagaName string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, sanitizeSegment(sagaName))
}

// AllSagasWildcardSubject matches every saga lifecycle event.
func AllSagasWildcardSubject() string {
	return SubjectPrefix + ".>"
}

func sanitizeSegment(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
