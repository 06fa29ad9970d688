package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus collectors of the invitation service. All
// names are prefixed with "invitations_".
type Metrics struct {
	InvitationsCreated    prometheus.Counter
	DuplicatesSkipped     prometheus.Counter
	RSVPs                 *prometheus.CounterVec
	CheckIns              *prometheus.CounterVec
	NotificationsEnqueued *prometheus.CounterVec
	NotificationsFailed   *prometheus.CounterVec
	EmailsSent            *prometheus.CounterVec
	ReminderEvents        prometheus.Counter
}

// Default registers the collectors with the default registry on first use
// and returns the shared set afterwards.
func Default() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			InvitationsCreated: promauto.NewCounter(prometheus.CounterOpts{
				Name: "invitations_created_total",
				Help: "Total number of invitations written",
			}),
			DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
				Name: "invitations_duplicates_total",
				Help: "Total number of invitations refused because the email was already invited",
			}),
			RSVPs: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "invitations_rsvps_total",
				Help: "Total number of recorded RSVP answers",
			}, []string{"response"}),
			CheckIns: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "invitations_checkins_total",
				Help: "Total number of check-in attempts by outcome",
			}, []string{"outcome"}),
			NotificationsEnqueued: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "invitations_notifications_enqueued_total",
				Help: "Total number of notifications handed to the dispatcher",
			}, []string{"kind"}),
			NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "invitations_notifications_failed_total",
				Help: "Total number of notifications the dispatcher refused",
			}, []string{"kind"}),
			EmailsSent: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "invitations_emails_sent_total",
				Help: "Total number of emails handed to the mail provider",
			}, []string{"kind", "result"}),
			ReminderEvents: promauto.NewCounter(prometheus.CounterOpts{
				Name: "invitations_reminder_events_total",
				Help: "Total number of events processed by the reminder job",
			}),
		}
	})
	return globalMetrics
}
