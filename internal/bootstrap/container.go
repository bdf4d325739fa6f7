package bootstrap

import (
	"context"
	"path/filepath"
	"time"

	"harmony-api/internal/config"
	"harmony-api/internal/controller"
	"harmony-api/internal/model"
	"harmony-api/internal/pkg/logger"
	"harmony-api/internal/repository/memory"
	"harmony-api/internal/service"
	"harmony-api/pkg/cache"
	"harmony-api/pkg/catalogue"
	"harmony-api/pkg/embedding"
	"harmony-api/pkg/embedding/factory"
	"harmony-api/pkg/events"
	"harmony-api/pkg/matching"
	pktNats "harmony-api/pkg/nats"
	"harmony-api/pkg/parser"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	InfoController controller.IInfoController
	TextController controller.ITextController

	// Background Services (Exposed for main.go to run)
	SnapshotService service.ISnapshotService
	CatalogueStore  *catalogue.Store

	InstrumentsCache *memory.InstrumentsCache
	VectorsCache     *memory.VectorsCache
	Logger           logger.ILogger

	closers []func()
}

func NewContainer(cfg *config.Config, sysLogger logger.ILogger) *Container {
	// 1. Infrastructure
	// NATS
	var eventBus events.Publisher
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			natsPub = pub
			eventBus = pub
		}
	}

	// Redis
	var mirror cache.Mirror
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to Redis, snapshot mirror disabled", map[string]interface{}{"error": err.Error()})
			_ = rdb.Close()
			rdb = nil
		} else {
			mirror = cache.NewRedisMirror(rdb, "")
		}
		cancel()
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Caches and catalogue
	instrumentsCache := memory.NewInstrumentsCache(cfg.Cache.DataPath, sysLogger, mirror)
	vectorsCache := memory.NewVectorsCache(cfg.Cache.DataPath, sysLogger, mirror)

	var fetcher catalogue.Fetcher
	if cfg.Catalogue.BlobBaseURL != "" {
		fetcher = catalogue.NewHTTPFetcher(cfg.Catalogue.BlobBaseURL)
	}
	catalogueStore := catalogue.NewStore(cfg.Catalogue.DataPath, fetcher, cfg.Catalogue.FetchTimeout, sysLogger)

	// 4. Services
	vectorisers := func(m model.EmbeddingModel) (embedding.Vectoriser, error) {
		return factory.NewVectoriser(m, cfg.Ai)
	}
	available := func(m model.EmbeddingModel) bool {
		return factory.Available(m, cfg.Ai)
	}

	snapshotService := service.NewSnapshotService(
		pubSub,
		cfg.Cache.SnapshotInterval,
		events.NewBusSnapshotPublisher(eventBus, sysLogger),
		sysLogger,
		instrumentsCache,
		vectorsCache,
	)

	textService := service.NewTextService(
		instrumentsCache,
		vectorsCache,
		catalogueStore,
		parser.NewRegistry(),
		matching.NewCosineEngine(),
		vectorisers,
		filepath.Join(cfg.Cache.DataPath, service.ExamplesFilename),
		sysLogger,
	)
	infoService := service.NewInfoService(cfg.App.CommitId, cfg.App.Version, available, vectorisers)

	c := &Container{
		InfoController: controller.NewInfoController(infoService),
		TextController: controller.NewTextController(textService, snapshotService, cfg.App.JwtSecret),

		SnapshotService:  snapshotService,
		CatalogueStore:   catalogueStore,
		InstrumentsCache: instrumentsCache,
		VectorsCache:     vectorsCache,
		Logger:           sysLogger,
	}

	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	if natsPub != nil {
		c.closers = append(c.closers, natsPub.Close)
	}
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}
	return c
}

// Close releases the connections opened by NewContainer.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
