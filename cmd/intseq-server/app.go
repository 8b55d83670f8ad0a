package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/illmade-knight/go-intseq/pkg/auditlog"
	"github.com/illmade-knight/go-intseq/pkg/cache"
	"github.com/illmade-knight/go-intseq/pkg/config"
	"github.com/illmade-knight/go-intseq/pkg/messagepipeline"
	"github.com/illmade-knight/go-intseq/pkg/metrics"
	"github.com/illmade-knight/go-intseq/pkg/microservice"
	"github.com/illmade-knight/go-intseq/pkg/seqservice"
	"github.com/illmade-knight/go-intseq/pkg/sequence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

const shutdownTimeout = 15 * time.Second

// app owns every long-lived component of the server.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	registry *sequence.Registry
	service  *seqservice.Service
	server   *microservice.BaseServer
	audit    *auditlog.BatchInserter[auditlog.Entry]
	worker   *messagepipeline.StreamingService[seqservice.NumbersRequest]
	replies  *messagepipeline.GoogleSimplePublisher

	// closers run in reverse order after everything has stopped.
	closers []func() error
}

func clientOptions(cfg *config.Config) []option.ClientOption {
	if cfg.Service.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.Service.CredentialsFile)}
}

// newRegistry builds the sequence registry on its own, for listing.
func newRegistry(cfg *config.Config, logger zerolog.Logger, observer sequence.Observer) (*sequence.Registry, *sequence.Engines, error) {
	engines := sequence.NewEngines()
	opts := []sequence.Option{
		sequence.WithLogger(logger),
		sequence.WithNativeBits(cfg.Limits.NativeIntBits),
	}
	if observer != nil {
		opts = append(opts, sequence.WithObserver(observer))
	}
	reg, err := sequence.NewDefaultRegistry(engines, cfg.Sequences, opts...)
	if err != nil {
		return nil, nil, err
	}
	return reg, engines, nil
}

// newApp wires the components described by cfg. Nothing is started.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observers := sequence.Observers{metrics.NewCollector(promReg)}

	a.audit, err = a.newAuditLog(ctx)
	if err != nil {
		return nil, err
	}
	if a.audit != nil {
		observers = append(observers, auditlog.Observer(a.audit))
		metrics.RegisterAudit(promReg, a.audit)
	}

	reg, engines, err := newRegistry(cfg, logger, observers)
	if err != nil {
		return nil, err
	}
	a.registry = reg
	metrics.RegisterEngines(promReg, engines)

	store, err := a.newStore(ctx)
	if err != nil {
		return nil, err
	}
	var lru *cache.InMemoryLRUCache[seqservice.NumberKey, sequence.Response]
	a.service = seqservice.New(reg,
		seqservice.WithLogger(logger),
		seqservice.WithMaxQuerySize(cfg.Limits.MaxQuerySize),
		seqservice.WithResultCache(a.cacheChain(store, &lru)),
	)
	a.closers = append(a.closers, a.service.Close)
	if lru != nil {
		metrics.RegisterResultCache(promReg, lru)
	}

	a.server = microservice.NewBaseServer(logger, cfg.Service.HTTPPort, promReg)
	seqservice.NewHandler(a.service, logger).Register(a.server.Mux())

	if cfg.PubSub.Enabled {
		if err := a.newWorker(ctx); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// cacheChain composes LRU -> store -> compute. Either tier may be absent.
func (a *app) cacheChain(store cache.Store[seqservice.NumberKey, sequence.Response], lru **cache.InMemoryLRUCache[seqservice.NumberKey, sequence.Response]) func(seqservice.ResultFetcher) (seqservice.ResultFetcher, error) {
	if store == nil && a.cfg.Cache.LRUSize <= 0 {
		return nil
	}
	return func(source seqservice.ResultFetcher) (seqservice.ResultFetcher, error) {
		next := source
		if store != nil {
			next = cache.NewFallbackFetcher(&cache.FallbackConfig{CacheWriteTimeout: a.cfg.Cache.WriteTimeout}, store, source, a.logger)
		}
		if a.cfg.Cache.LRUSize <= 0 {
			return next, nil
		}
		l, err := cache.NewInMemoryLRUCache[seqservice.NumberKey, sequence.Response](a.cfg.Cache.LRUSize, next)
		if err != nil {
			return nil, err
		}
		*lru = l
		return l, nil
	}
}

func (a *app) newStore(ctx context.Context) (cache.Store[seqservice.NumberKey, sequence.Response], error) {
	switch a.cfg.Cache.Store {
	case config.StoreMemory:
		return cache.NewInMemoryCache[seqservice.NumberKey, sequence.Response](), nil
	case config.StoreRedis:
		return cache.NewRedisStore[seqservice.NumberKey, sequence.Response](ctx, &a.cfg.Cache.Redis, a.logger)
	case config.StoreFirestore:
		fsCfg := a.cfg.Cache.Firestore
		if fsCfg.ProjectID == "" {
			fsCfg.ProjectID = a.cfg.Service.ProjectID
		}
		client, err := firestore.NewClient(ctx, fsCfg.ProjectID, clientOptions(a.cfg)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return cache.NewFirestoreStore[seqservice.NumberKey, sequence.Response](&fsCfg, client, a.logger)
	default:
		return nil, nil
	}
}

func (a *app) newAuditLog(ctx context.Context) (*auditlog.BatchInserter[auditlog.Entry], error) {
	cfg := a.cfg.Audit
	var sink auditlog.DataBatchInserter[auditlog.Entry]
	switch cfg.Sink {
	case config.SinkBigQuery:
		client, err := auditlog.NewBigQueryClient(ctx, a.cfg.Service.ProjectID, a.cfg.Service.CredentialsFile, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		sink, err = auditlog.NewBigQueryInserter[auditlog.Entry](ctx, client, auditlog.BigQueryConfig{DatasetID: cfg.DatasetID, TableID: cfg.TableID}, a.logger)
		if err != nil {
			return nil, err
		}
	case config.SinkGCS:
		client, err := storage.NewClient(ctx, clientOptions(a.cfg)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		sink, err = auditlog.NewGCSArchiver[auditlog.Entry](auditlog.NewGCSClientAdapter(client),
			auditlog.GCSArchiverConfig{Bucket: cfg.Bucket, ObjectPrefix: cfg.ObjectPrefix}, auditlog.DayKey, a.logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, nil
	}
	return auditlog.NewBatchInserter[auditlog.Entry](auditlog.BatchInserterConfig{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		InsertTimeout: cfg.InsertTimeout,
	}, sink, a.logger)
}

func (a *app) newWorker(ctx context.Context) error {
	client, err := pubsub.NewClient(ctx, a.cfg.Service.ProjectID, clientOptions(a.cfg)...)
	if err != nil {
		return fmt.Errorf("failed to create pubsub client: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	consumerCfg := messagepipeline.NewGooglePubsubConsumerDefaults(a.cfg.PubSub.SubscriptionID)
	consumer, err := messagepipeline.NewGooglePubsubConsumer(ctx, consumerCfg, client, a.logger)
	if err != nil {
		return err
	}
	a.server.AddReadinessCheck("pubsub", func(context.Context) error {
		select {
		case <-consumer.Done():
			return errors.New("request subscription is no longer received")
		default:
			return nil
		}
	})
	a.replies, err = messagepipeline.NewGoogleSimplePublisher(ctx, messagepipeline.NewGoogleSimplePublisherDefaults(a.cfg.PubSub.ReplyTopicID), client, a.logger)
	if err != nil {
		return err
	}
	a.worker, err = messagepipeline.NewStreamingService[seqservice.NumbersRequest](
		messagepipeline.StreamingServiceConfig{NumWorkers: a.cfg.PubSub.NumWorkers, ProcessTimeout: a.cfg.PubSub.ProcessTimeout},
		consumer,
		seqservice.NewRequestTransformer(a.logger),
		seqservice.NewRequestProcessor(a.service, a.replies, a.logger),
		a.logger,
	)
	return err
}

// run starts every component and blocks until ctx is cancelled, then shuts
// them down in reverse order of dependency.
func (a *app) run(ctx context.Context) error {
	if a.audit != nil {
		a.audit.Start(ctx)
	}
	if err := a.server.Start(); err != nil {
		return errors.Join(err, a.shutdown())
	}
	if a.worker != nil {
		if err := a.worker.Start(ctx); err != nil {
			return errors.Join(err, a.shutdown())
		}
	}
	a.logger.Info().Int("sequences", a.registry.Len()).Str("port", a.server.GetHTTPPort()).Msg("Server ready.")

	<-ctx.Done()
	a.logger.Info().Msg("Shutdown signal received.")
	return a.shutdown()
}

func (a *app) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error { return a.server.Shutdown(ctx) })
	if a.worker != nil {
		g.Go(func() error {
			if err := a.worker.Stop(ctx); err != nil {
				return err
			}
			return a.replies.Stop(ctx)
		})
	}
	err := g.Wait()
	if a.audit != nil {
		err = errors.Join(err, a.audit.Stop(ctx))
	}
	return errors.Join(err, a.close())
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
