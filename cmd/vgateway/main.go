// Virtual Gateway - a simulated smart-home backend.
//
// The gateway runs a tick-driven environment simulation over a fixed
// roster of virtual devices, evaluates automation rules against it, and
// serves the result over REST and WebSocket. Optional bridges mirror
// device state to MQTT and export readings to InfluxDB.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/virtual-gateway/internal/api"
	"github.com/nerrad567/virtual-gateway/internal/auth"
	"github.com/nerrad567/virtual-gateway/internal/automation"
	"github.com/nerrad567/virtual-gateway/internal/gateway"
	"github.com/nerrad567/virtual-gateway/internal/history"
	"github.com/nerrad567/virtual-gateway/internal/infrastructure/config"
	"github.com/nerrad567/virtual-gateway/internal/infrastructure/database"
	"github.com/nerrad567/virtual-gateway/internal/infrastructure/influxdb"
	"github.com/nerrad567/virtual-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/virtual-gateway/internal/infrastructure/mqtt"
	"github.com/nerrad567/virtual-gateway/internal/thing"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting virtual gateway", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	// Tick history store.
	db, err := database.Open(database.Config{
		Path:        cfg.History.Path,
		WALMode:     cfg.History.WALMode,
		BusyTimeout: cfg.History.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer func() {
		log.Info("closing history database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	recorder := history.NewRecorder(db)
	if err := recorder.Init(ctx); err != nil {
		return fmt.Errorf("initialising tick history: %w", err)
	}
	if pruned, pruneErr := recorder.Prune(ctx, cfg.GetRetention()); pruneErr != nil {
		log.Warn("pruning tick history failed", "error", pruneErr)
	} else if pruned > 0 {
		log.Info("pruned tick history", "rows", pruned)
	}

	authSvc, err := auth.NewService(cfg.Security.JWT.Secret, cfg.GetAccessTokenTTL(), log)
	if err != nil {
		return fmt.Errorf("initialising auth: %w", err)
	}

	hub := api.NewHub(cfg.WebSocket, log)

	opts := []gateway.Option{
		gateway.WithTickInterval(cfg.GetTickInterval()),
		gateway.WithAutomationEnabled(cfg.Gateway.AutomationEnabled),
		gateway.WithLogger(log),
		gateway.WithBroadcaster(hub),
		gateway.WithRecorder(recorder),
	}

	// Optional MQTT mirror.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		opts = append(opts, gateway.WithPublisher(&mqttPublisher{
			client: mqttClient,
			log:    log,
		}))
	} else {
		log.Info("MQTT disabled")
	}

	// Optional InfluxDB telemetry.
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		opts = append(opts, gateway.WithTelemetry(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	controller := gateway.NewController(opts...)

	// Fan automation events out to WebSocket and MQTT as they happen.
	controller.Events().SetNotify(func(ev automation.Event) {
		hub.BroadcastEvent(ev)
		if mqttClient != nil {
			publishEvent(mqttClient, ev, log)
		}
	})

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WebSocket: cfg.WebSocket,
		Gateway:   controller,
		Auth:      authSvc,
		Analytics: history.NewService(db, nil, nil),
		Hub:       hub,
		Logger:    log,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating api server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}
	defer func() {
		log.Info("stopping api server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing api server", "error", closeErr)
		}
	}()

	go func() {
		_ = controller.Run(ctx)
	}()

	log.Info("initialisation complete, gateway running",
		"tick_interval", cfg.GetTickInterval(),
		"automation", cfg.Gateway.AutomationEnabled,
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// getConfigPath returns the configuration file path.
// Uses VGATEWAY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("VGATEWAY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// mqttPublisher adapts the MQTT client to the controller's Publisher
// interface, mirroring each device's state to its retained topic at the
// configured QoS.
type mqttPublisher struct {
	client *mqtt.Client
	log    *logging.Logger
}

func (p *mqttPublisher) PublishThing(t thing.Thing) {
	payload, err := json.Marshal(t)
	if err != nil {
		p.log.Error("marshalling thing state", "thing", t.ID, "error", err)
		return
	}
	topic := mqtt.Topics{}.ThingState(t.ID)
	if err := p.client.PublishRetained(topic, payload); err != nil {
		p.log.Warn("publishing thing state", "thing", t.ID, "error", err)
	}
}

// publishEvent mirrors one automation log entry to the events topic.
func publishEvent(client *mqtt.Client, ev automation.Event, log *logging.Logger) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error("marshalling automation event", "error", err)
		return
	}
	if err := client.Publish(mqtt.Topics{}.AutomationEvents(), payload, 1, false); err != nil {
		log.Warn("publishing automation event", "error", err)
	}
}
