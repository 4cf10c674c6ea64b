/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package diagnostics provides UpdateLogger implementations for the table registry.
package diagnostics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/suparena/tablestore/storagemodels"
)

// UpdateLogger mirrors tablestore.UpdateLogger so this package does not
// import the registry.
type UpdateLogger interface {
	ChangesSaved(entries []*storagemodels.Entry, rowsAffected int)
}

// CountStates returns the number of entries per lifecycle state.
func CountStates(entries []*storagemodels.Entry) map[storagemodels.EntityState]int {
	counts := make(map[storagemodels.EntityState]int)
	for _, e := range entries {
		if e == nil {
			continue
		}
		counts[e.State]++
	}
	return counts
}

// Logger writes one structured record per saved transaction.
type Logger struct {
	log   *slog.Logger
	level slog.Level
}

// NewLogger returns a Logger writing at debug level to log.
func NewLogger(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log, level: slog.LevelDebug}
}

// WithLevel changes the level records are written at.
func (l *Logger) WithLevel(level slog.Level) *Logger {
	l.level = level
	return l
}

// ChangesSaved logs the entry counts of a saved transaction.
func (l *Logger) ChangesSaved(entries []*storagemodels.Entry, rowsAffected int) {
	if !l.log.Enabled(context.Background(), l.level) {
		return
	}
	counts := CountStates(entries)
	l.log.Log(context.Background(), l.level, "changes saved",
		"entries", len(entries),
		"rows_affected", rowsAffected,
		"added", counts[storagemodels.Added],
		"modified", counts[storagemodels.Modified],
		"deleted", counts[storagemodels.Deleted],
	)
}

// Metrics exports transaction counters to Prometheus.
type Metrics struct {
	transactions prometheus.Counter
	rowsAffected prometheus.Counter
	entries      *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tablestore",
			Name:      "transactions_total",
			Help:      "Number of transactions applied to the table registry.",
		}),
		rowsAffected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tablestore",
			Name:      "rows_affected_total",
			Help:      "Number of entries dispatched to a table operation.",
		}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tablestore",
			Name:      "entries_total",
			Help:      "Number of entries submitted, by lifecycle state.",
		}, []string{"state"}),
	}
	for _, c := range []prometheus.Collector{m.transactions, m.rowsAffected, m.entries} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ChangesSaved updates the counters.
func (m *Metrics) ChangesSaved(entries []*storagemodels.Entry, rowsAffected int) {
	m.transactions.Inc()
	m.rowsAffected.Add(float64(rowsAffected))
	for state, n := range CountStates(entries) {
		m.entries.WithLabelValues(state.String()).Add(float64(n))
	}
}

type multi []UpdateLogger

// Multi fans ChangesSaved out to every non-nil logger, in order.
func Multi(loggers ...UpdateLogger) UpdateLogger {
	var out multi
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

func (m multi) ChangesSaved(entries []*storagemodels.Entry, rowsAffected int) {
	for _, l := range m {
		l.ChangesSaved(entries, rowsAffected)
	}
}
