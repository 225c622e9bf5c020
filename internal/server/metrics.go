package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/agentgate/internal/approval"
)

// Metrics holds the Prometheus instruments served at /metrics. They live on
// a private registry so tests can run many servers without collisions.
type Metrics struct {
	registry *prometheus.Registry

	tasksStarted      prometheus.Counter
	tasksFinished     *prometheus.CounterVec
	approvalsResolved *prometheus.CounterVec
	rpcRequests       *prometheus.CounterVec
}

// NewMetrics creates and registers the instrument set. The approvals
// manager backs the pending-approvals gauge.
func NewMetrics(approvals *approval.Manager) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		tasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentgate_tasks_started_total",
			Help: "Tasks created by SendMessage or SendStreamingMessage.",
		}),
		tasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentgate_tasks_finished_total",
			Help: "Tasks that reached a terminal state, by state.",
		}, []string{"state"}),
		approvalsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentgate_approvals_resolved_total",
			Help: "Approvals resolved through the HTTP endpoint, by action.",
		}, []string{"action"}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentgate_rpc_requests_total",
			Help: "JSON-RPC requests, by method.",
		}, []string{"method"}),
	}

	registry.MustRegister(m.tasksStarted, m.tasksFinished, m.approvalsResolved, m.rpcRequests)

	if approvals != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "agentgate_approvals_pending",
			Help: "Approvals currently waiting for a decision.",
		}, func() float64 {
			return float64(len(approvals.List()))
		}))
	}
	return m
}

// Registry exposes the backing registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// TaskStarted counts a newly created task.
func (m *Metrics) TaskStarted() { m.tasksStarted.Inc() }

// TaskFinished counts a task reaching the given terminal state.
func (m *Metrics) TaskFinished(state string) {
	m.tasksFinished.WithLabelValues(state).Inc()
}

// ApprovalResolved counts one resolved approval.
func (m *Metrics) ApprovalResolved(action string) {
	m.approvalsResolved.WithLabelValues(action).Inc()
}

// RPCRequest counts one JSON-RPC request.
func (m *Metrics) RPCRequest(method string) {
	m.rpcRequests.WithLabelValues(method).Inc()
}
