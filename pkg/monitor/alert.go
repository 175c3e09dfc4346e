package monitor

import (
	"github.com/sirupsen/logrus"
)

// Alerter dispatches health alerts through the structured log. Log-based
// alerting is the delivery mechanism here; shipping to pagers or mail is
// a concern of the log pipeline.
type Alerter struct {
	log logrus.FieldLogger
}

// NewAlerter creates an alerter
func NewAlerter(log logrus.FieldLogger) *Alerter {
	return &Alerter{
		log: log.WithField("component", "alerts"),
	}
}

// Dispatch emits an alert when the snapshot is degraded. Healthy
// snapshots stay quiet.
func (a *Alerter) Dispatch(snapshot *Snapshot) {
	if snapshot.Status == StateHealthy {
		return
	}

	var degraded []string

	for _, comp := range snapshot.Components {
		if comp.State != StateHealthy {
			degraded = append(degraded, comp.Name)
		}
	}

	entry := a.log.WithFields(logrus.Fields{
		"status":     snapshot.Status,
		"components": degraded,
		"anomalies":  len(snapshot.Anomalies),
	})

	if snapshot.Status == StateUnhealthy {
		entry.Error("Pipeline health is degraded")

		return
	}

	entry.Warn("Pipeline health warning")
}
