package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskbot_submissions_evaluated_total",
		Help: "Inbound messages evaluated as proof submissions, by verdict.",
	}, []string{"verdict"})

	ApprovalsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskbot_approvals_granted_total",
		Help: "Participants credited for a task.",
	})

	CapacityLocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskbot_capacity_locks_total",
		Help: "Channels locked after reaching their user limit.",
	})

	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskbot_commands_total",
		Help: "Admin commands handled, by kind and outcome.",
	}, []string{"kind", "outcome"})
)
