package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BoxesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockbox_boxes_created_total",
		Help: "Total number of boxes successfully created.",
	})

	UnlockRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockbox_unlock_requests_total",
		Help: "Total number of unlock requests opened by lead guardians.",
	})

	UnlockResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockbox_unlock_resolutions_total",
		Help: "Total number of unlock requests resolved, by outcome.",
	},
		[]string{"outcome"},
	)

	InvitationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockbox_invitations_created_total",
		Help: "Total number of invitations issued.",
	})

	InvitationsRedeemedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lockbox_invitations_redeemed_total",
		Help: "Total number of successful invitation redemptions.",
	})

	EventsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockbox_invitation_events_total",
		Help: "Total number of invitation events handled, by result.",
	},
		[]string{"result"},
	)

	VersionConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockbox_version_conflicts_total",
		Help: "Total number of conditional writes retried after a version conflict.",
	},
		[]string{"operation"},
	)

	OutboxTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockbox_outbox_tasks_total",
		Help: "Total number of outbox tasks handed to the producer, by result.",
	},
		[]string{"result"},
	)

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lockbox_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)
)
