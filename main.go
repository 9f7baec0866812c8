package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"com.aiac.relay/pkg/api"
	"com.aiac.relay/pkg/config"
	"com.aiac.relay/pkg/controller"
	"com.aiac.relay/pkg/core/store/commands"
	"com.aiac.relay/pkg/core/store/historical"
	"com.aiac.relay/pkg/core/store/sensors"
	"com.aiac.relay/pkg/core/store/vehicle"
	"com.aiac.relay/pkg/gateway/coap"
	"com.aiac.relay/pkg/ingestion/realtime"
	"com.aiac.relay/pkg/ingestion/timeseries"
	"com.aiac.relay/pkg/metrics"
	"com.aiac.relay/pkg/relay"
	"com.aiac.relay/pkg/stream"
	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	bolt "go.etcd.io/bbolt"
	"gocloud.dev/docstore"
	"gocloud.dev/pubsub"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "gocloud.dev/docstore/memdocstore"
	_ "gocloud.dev/docstore/mongodocstore"
	_ "gocloud.dev/pubsub/mempubsub"
)

type stores struct {
	commands commands.CommandStore
	sensors  sensors.SensorStore
	state    vehicle.StateStore
	history  historical.TimeSeriesStore
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.SetHandler(json.New(os.Stderr))
	} else {
		log.SetHandler(text.New(os.Stderr))
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func openCollection(ctx context.Context, s *stores, url string) (*docstore.Collection, error) {
	coll, err := docstore.OpenCollection(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", url, err)
	}
	s.closers = append(s.closers, func() { coll.Close() })
	return coll, nil
}

func openStores(ctx context.Context, cfg *config.PlatformConfig) (*stores, error) {
	s := &stores{}

	var db *bolt.DB
	boltDB := func() (*bolt.DB, error) {
		if db != nil {
			return db, nil
		}
		var err error
		db, err = bolt.Open(cfg.StorageConfig.Path, 0600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.StorageConfig.Path, err)
		}
		s.closers = append(s.closers, func() { db.Close() })
		return db, nil
	}

	storage := cfg.StorageConfig
	switch storage.Type {
	case "local":
		db, err := boltDB()
		if err != nil {
			return s, err
		}
		s.commands = commands.NewCommandLocalStore(db)
		s.sensors = sensors.NewSensorLocalStore(db)
		s.state = vehicle.NewStateLocalStore(db)

	case "docstore":
		commandsColl, err := openCollection(ctx, s, storage.CommandsURL)
		if err != nil {
			return s, err
		}
		sensorsColl, err := openCollection(ctx, s, storage.SensorsURL)
		if err != nil {
			return s, err
		}
		s.commands = commands.NewCommandDocStore(commandsColl)
		s.sensors = sensors.NewSensorDocStore(sensorsColl)

	case "postgres":
		sqlDB, err := sql.Open("pgx", storage.URL)
		if err != nil {
			return s, err
		}
		s.closers = append(s.closers, func() { sqlDB.Close() })
		if err := sqlDB.PingContext(ctx); err != nil {
			return s, fmt.Errorf("connect postgres: %w", err)
		}
		if err := commands.EnsureCommandSchema(ctx, sqlDB); err != nil {
			return s, err
		}
		if err := sensors.EnsureSensorSchema(ctx, sqlDB); err != nil {
			return s, err
		}
		s.commands = commands.NewCommandPostgresStore(sqlDB)
		s.sensors = sensors.NewSensorPostgresStore(sqlDB)

	default:
		return s, fmt.Errorf("unknown storage type %q", storage.Type)
	}

	// docstore and postgres keep the vehicle snapshot in a collection
	if s.state == nil {
		stateColl, err := openCollection(ctx, s, storage.VehicleURL)
		if err != nil {
			return s, err
		}
		s.state = vehicle.NewStateDocStore(stateColl)
	}

	ts := cfg.TimeseriesConfig
	switch ts.Type {
	case "local":
		db, err := boltDB()
		if err != nil {
			return s, err
		}
		s.history = historical.NewTimeSeriesLocalStore(db)
	case "influx":
		client := influxdb2.NewClient(ts.URL, ts.Token)
		s.closers = append(s.closers, client.Close)
		s.history = historical.NewTimeSeriesInfluxStore(client, ts.Org, ts.Bucket)
	case "docstore":
		historyColl, err := openCollection(ctx, s, ts.URL)
		if err != nil {
			return s, err
		}
		s.history = historical.NewHistoricalDocStore(historyColl)
	default:
		return s, fmt.Errorf("unknown timeseries type %q", ts.Type)
	}

	return s, nil
}

func registerViews() error {
	if err := stream.RegisterViews(); err != nil {
		return err
	}
	return api.RegisterViews()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Err loading config :%v", err)
	}
	setupLogging(cfg.LogConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		st.close()
		log.Fatalf("Err opening stores :%v", err)
	}
	defer st.close()

	dataTopic, err := pubsub.OpenTopic(ctx, cfg.MessagingConfig.TopicURL)
	if err != nil {
		log.Fatalf("Err creating data topic :%v", err)
	}
	defer dataTopic.Shutdown(context.Background())

	realtimeSub, err := pubsub.OpenSubscription(ctx, cfg.MessagingConfig.TopicURL)
	if err != nil {
		log.Fatalf("could not open realtime subscription :%v", err)
	}
	defer realtimeSub.Shutdown(context.Background())

	timeseriesSub, err := pubsub.OpenSubscription(ctx, cfg.MessagingConfig.TopicURL)
	if err != nil {
		log.Fatalf("could not open timeseries subscription :%v", err)
	}
	defer timeseriesSub.Shutdown(context.Background())

	if err := registerViews(); err != nil {
		log.Fatalf("Failed to register views: %v", err)
	}
	if _, err := metrics.StartMetricsExporter(cfg.MetricsConfig); err != nil {
		log.Fatalf("Failed to create the Prometheus stats exporter: %v", err)
	}

	vehicleClient := controller.NewClient(cfg.ControllerConfig)
	recorder := relay.NewRelay(st.commands, st.sensors, vehicleClient, dataTopic, cfg.VehicleConfig.ID)

	supervisor := stream.NewSupervisorFromConfig(cfg.StreamConfig)
	defer supervisor.Close()

	go realtime.NewIngestor(realtimeSub, st.state).Start(ctx)
	go timeseries.NewIngestor(timeseriesSub, st.history).Start(ctx)

	for _, gw := range cfg.GatewayConfigs {
		if gw.Protocol != "coap" {
			log.Warnf("unsupported gateway protocol %q", gw.Protocol)
			continue
		}
		gateway := coap.NewGateway(recorder, gw)
		if err := gateway.Start(); err != nil {
			log.Fatalf("Err starting coap gateway :%v", err)
		}
		defer gateway.Stop()
	}

	apiServer := api.NewServer(recorder, supervisor, st.state, st.history, cfg.VehicleConfig.ID, cfg.APIServerConfig)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Errorf("api server: %v", err)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	log.Info("Server Started")
	<-done
	log.Info("Server Stopping")

	if err := apiServer.Shutdown(); err != nil {
		log.Warnf("api shutdown: %v", err)
	}
}
