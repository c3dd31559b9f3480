package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TasksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "todo_tasks_created_total",
			Help: "Tasks persisted through the service",
		},
	)
	TasksCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "todo_tasks_completed_total",
			Help: "Complete calls that matched an existing task",
		},
	)
	ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_task_validation_failures_total",
			Help: "Rejected create requests by validation message",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(TasksCreated)
	prometheus.MustRegister(TasksCompleted)
	prometheus.MustRegister(ValidationFailures)
}
