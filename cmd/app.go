package cmd

import (
	"sort"

	"example.com/backstage/services/procurement/config"
	"example.com/backstage/services/procurement/internal/cache"
	"example.com/backstage/services/procurement/internal/client"
	"example.com/backstage/services/procurement/internal/forms"
	"example.com/backstage/services/procurement/internal/messaging"
	"example.com/backstage/services/procurement/internal/metrics"
	"example.com/backstage/services/procurement/internal/tracing"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// appSource identifies this process on published events
const appSource = "procurement-console"

// app holds the services shared by every command
type app struct {
	client    *client.Client
	store     *cache.Store
	publisher *messaging.Publisher
	metrics   *metrics.Metrics
	tracer    tracing.Tracer
}

// newApp wires the backend client, the cache and the notification publisher
func newApp() (*app, error) {
	m := metrics.NewMetrics()

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = tracing.NewNoopTracer()
	}

	backend := openCacheBackend(cfg.Redis, m)

	publisher, err := messaging.NewPublisherFromConfig(cfg.Azure, appSource)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Azure Service Bus, notifications will only be logged")
		publisher = messaging.NewPublisher(nil, appSource)
	}

	return &app{
		client:    client.New(cfg.API, client.WithTracer(tracer), client.WithMetrics(m)),
		store:     cache.NewStore(cfg.Cache, backend, cache.WithMetrics(m)),
		publisher: publisher,
		metrics:   m,
		tracer:    tracer,
	}, nil
}

// openCacheBackend connects the shared cache. The cache is healthy when Redis
// is disabled or connected; without it the console caches in process only.
func openCacheBackend(redisCfg config.RedisConfig, m *metrics.Metrics) cache.Backend {
	redisBackend, err := cache.NewRedisBackend(redisCfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without shared caching")
		m.SetHealth("cache", false)
		return nil
	}

	m.SetHealth("cache", true)
	return redisBackend
}

// deps builds form dependencies that log and publish every notification
func (a *app) deps(navigate forms.NavigatorFunc) forms.Deps {
	deps := forms.Deps{
		Cache:    a.store,
		Notifier: forms.MultiNotifier{forms.LogNotifier{}, a.publisher},
		Location: cfg.Forms.Location(),
	}
	if navigate != nil {
		deps.Navigator = navigate
	}
	return deps
}

// Close releases the cache, the publisher and the tracer
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close cache")
	}
	if err := a.publisher.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close publisher")
	}
	a.tracer.Close()
}

// printFieldErrors lists field errors in a stable order
func printFieldErrors(cmd *cobra.Command, fieldErrors forms.FieldErrors) {
	keys := make([]string, 0, len(fieldErrors))
	for key := range fieldErrors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		cmd.PrintErrf("  %s: %s\n", key, fieldErrors[key])
	}
}
