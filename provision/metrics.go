package provision

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hostProvisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rack_provision_pass_total",
		Help: "Number of per-host provisioning passes, by pass and result.",
	}, []string{"pass", "result"})

	waitAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provision_wait_attempts_total",
		Help: "Number of device state poll attempts, by awaited condition.",
	}, []string{"condition"})
)
