package service

import (
	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

// Notifier receives task events. Publish must not block.
type Notifier interface {
	Publish(event domain.TaskEvent)
}

type nopNotifier struct{}

func (nopNotifier) Publish(domain.TaskEvent) {}

// publish stamps and forwards a task event.
func (s *Service) publish(eventType domain.TaskEventType, task *domain.Task, detail *domain.TaskDetail) {
	s.notifier.Publish(domain.TaskEvent{
		Type:   eventType,
		Ts:     s.now().UnixMilli(),
		Task:   task,
		Detail: detail,
	})
}
