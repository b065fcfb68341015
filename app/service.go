// Package app wires the scheduling engine together from configuration:
// persistence, metrics sinks, notification transport and the decision
// components themselves.
package app

import (
	"context"
	"fmt"

	"github.com/Alnumo/therapy-engine/config"
	"github.com/Alnumo/therapy-engine/core/capacity"
	"github.com/Alnumo/therapy-engine/core/impact"
	coremetrics "github.com/Alnumo/therapy-engine/core/metrics"
	"github.com/Alnumo/therapy-engine/core/monitor"
	corenotify "github.com/Alnumo/therapy-engine/core/notify"
	corestore "github.com/Alnumo/therapy-engine/core/store"
	"github.com/Alnumo/therapy-engine/core/substitution"
	"github.com/Alnumo/therapy-engine/core/workload"
	"github.com/Alnumo/therapy-engine/infra/logger"
	"github.com/Alnumo/therapy-engine/infra/metrics"
	"github.com/Alnumo/therapy-engine/infra/notify"
	infrastore "github.com/Alnumo/therapy-engine/infra/store"
	"github.com/Alnumo/therapy-engine/internal/eventbus"
)

// Service owns every engine component and their shared infrastructure.
type Service struct {
	Store      corestore.Store
	Calculator *workload.Calculator
	Validator  *capacity.Validator
	Optimizer  *capacity.Optimizer
	Finder     *substitution.Finder
	Planner    *substitution.Planner
	Plans      *substitution.Manager
	Analyzer   *impact.Analyzer
	Monitor    *monitor.Monitor

	bus         eventbus.EventBus
	log         logger.Logger
	promEnabled bool
	promPort    string
	closers     []func()
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	svc := &Service{log: logg}
	st, err := openStore(cfg.Store, svc)
	if err != nil {
		return nil, err
	}

	sink := buildSink(cfg.Metrics, svc)
	dispatcher, err := buildDispatcher(cfg, svc)
	if err != nil {
		return nil, fmt.Errorf("notification dispatcher: %w", err)
	}

	bus := eventbus.New()
	calc := workload.NewCalculator(st, st, st, cfg.Workload, logger.New("workload"))
	validator := capacity.NewValidator(calc, st, st, cfg.Capacity, bus, logger.New("capacity"))
	optimizer := capacity.NewOptimizer(validator, st, st, logger.New("bulk"))
	finder := substitution.NewFinder(calc, st, st, logger.New("substitution"))
	planner := substitution.NewPlanner(finder, calc, st, st, bus, logger.New("substitution"))
	plans := substitution.NewManager(st, st, dispatcher, bus, logger.New("substitution"))
	analyzer := impact.NewAnalyzer(st, st, st, calc, cfg.Impact, logger.New("impact"))
	mon := monitor.NewMonitor(calc, st, cfg.Monitor, sink, bus, logger.New("monitor"))

	svc.Store = st
	svc.Calculator = calc
	svc.Validator = validator
	svc.Optimizer = optimizer
	svc.Finder = finder
	svc.Planner = planner
	svc.Plans = plans
	svc.Analyzer = analyzer
	svc.Monitor = mon
	svc.bus = bus
	svc.promEnabled = cfg.Metrics.PrometheusEnabled
	svc.promPort = cfg.Metrics.PrometheusPort
	return svc, nil
}

func openStore(cfg config.StoreConfig, svc *Service) (corestore.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		st, err := infrastore.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		svc.closers = append(svc.closers, func() {
			if err := st.Close(); err != nil {
				svc.log.Errorf("close store: %v", err)
			}
		})
		return st, nil
	default:
		return infrastore.NewMemStore(), nil
	}
}

func buildSink(cfg coremetrics.Config, svc *Service) coremetrics.MetricsSink {
	var sinks []coremetrics.MetricsSink
	if cfg.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg)
		if err != nil {
			svc.log.Errorf("prom sink: %v", err)
		} else {
			sinks = append(sinks, sink)
		}
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}
	case 1:
		return sinks[0]
	default:
		return metrics.NewMultiSink(sinks...)
	}
}

func buildDispatcher(cfg *config.Config, svc *Service) (corenotify.Dispatcher, error) {
	switch cfg.Logging.Notifications {
	case "mqtt":
		d, err := notify.NewMQTTDispatcher(cfg.MQTT)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, d.Close)
		return d, nil
	case "nop":
		return corenotify.NopDispatcher{}, nil
	default:
		return corenotify.LogDispatcher{Log: logger.New("notify")}, nil
	}
}

// Run starts the capacity monitor and the metrics endpoint, blocking until
// the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.Monitor.Run(ctx)
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	return nil
}
