/*
 * Copyright 2023 The Meadowlark Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/meadowlark-team/meadowlark/internal/version"
)

const (
	namespace          = "meadowlark"
	operationLabel     = "operation"
	resultLabel        = "result"
	projectNameLabel   = "project_name"
	resourceNameLabel  = "resource_name"
	indexLabel         = "index"
	actionLabel        = "action"
	taskTypeLabel      = "task_type"
	propagationSuccess = "success"
	propagationRetry   = "retry"
	propagationFailure = "failure"
)

// Metrics manages the metric information that Meadowlark is trying to measure.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion *prometheus.GaugeVec

	repositoryOperationsTotal   *prometheus.CounterVec
	repositoryOperationSeconds  *prometheus.HistogramVec
	referenceFailuresTotal      *prometheus.CounterVec
	identityCollisionsTotal     prometheus.Counter
	propagationAttemptsTotal    *prometheus.CounterVec
	propagationPendingDocuments prometheus.Gauge

	backgroundGoroutinesTotal *prometheus.GaugeVec
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: reg,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		repositoryOperationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "operations_total",
			Help:      "The total number of repository operations by operation and result.",
		}, []string{operationLabel, resultLabel, projectNameLabel, resourceNameLabel}),
		repositoryOperationSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "operation_seconds",
			Help:      "The time taken by repository operations, store round trips included.",
		}, []string{operationLabel}),
		referenceFailuresTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "reference_failures_total",
			Help:      "The total number of writes and deletes rejected by reference validation.",
		}, []string{operationLabel}),
		identityCollisionsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "identity_collisions_total",
			Help:      "The total number of writes whose MeadowlarkID matched a document of another identity.",
		}),
		propagationAttemptsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "propagation",
			Name:      "attempts_total",
			Help:      "The total number of search index writes by index, action and outcome.",
		}, []string{indexLabel, actionLabel, resultLabel}),
		propagationPendingDocuments: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "propagation",
			Name:      "pending_documents",
			Help:      "The number of documents waiting to be written to the search index.",
		}),
		backgroundGoroutinesTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "goroutines_total",
			Help:      "The total number of goroutines attached by a particular background task.",
		}, []string{taskTypeLabel}),
	}

	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// AddRepositoryOperation adds the number of repository operations.
func (m *Metrics) AddRepositoryOperation(operation, result, projectName, resourceName string) {
	m.repositoryOperationsTotal.With(prometheus.Labels{
		operationLabel:    operation,
		resultLabel:       result,
		projectNameLabel:  projectName,
		resourceNameLabel: resourceName,
	}).Inc()
}

// ObserveRepositoryOperationSeconds observes the duration of a repository
// operation.
func (m *Metrics) ObserveRepositoryOperationSeconds(operation string, seconds float64) {
	m.repositoryOperationSeconds.With(prometheus.Labels{
		operationLabel: operation,
	}).Observe(seconds)
}

// AddReferenceFailure adds the number of operations rejected by reference
// validation.
func (m *Metrics) AddReferenceFailure(operation string) {
	m.referenceFailuresTotal.With(prometheus.Labels{
		operationLabel: operation,
	}).Inc()
}

// AddIdentityCollision adds the number of detected identity collisions.
func (m *Metrics) AddIdentityCollision() {
	m.identityCollisionsTotal.Inc()
}

// AddPropagationSuccess adds the number of successful index writes.
func (m *Metrics) AddPropagationSuccess(index, action string) {
	m.addPropagation(index, action, propagationSuccess)
}

// AddPropagationRetry adds the number of index writes that failed and will be
// retried.
func (m *Metrics) AddPropagationRetry(index, action string) {
	m.addPropagation(index, action, propagationRetry)
}

// AddPropagationFailure adds the number of index writes given up on.
func (m *Metrics) AddPropagationFailure(index, action string) {
	m.addPropagation(index, action, propagationFailure)
}

func (m *Metrics) addPropagation(index, action, result string) {
	m.propagationAttemptsTotal.With(prometheus.Labels{
		indexLabel:  index,
		actionLabel: action,
		resultLabel: result,
	}).Inc()
}

// SetPropagationPending sets the number of documents waiting for the index.
func (m *Metrics) SetPropagationPending(count int) {
	m.propagationPendingDocuments.Set(float64(count))
}

// AddBackgroundGoroutines adds the number of goroutines attached by a
// particular background task.
func (m *Metrics) AddBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Inc()
}

// RemoveBackgroundGoroutines removes the number of goroutines attached by a
// particular background task.
func (m *Metrics) RemoveBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Dec()
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
