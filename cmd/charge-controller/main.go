package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/charge-controller/db"
	"github.com/mrivero/charge-controller/internal/api"
	"github.com/mrivero/charge-controller/internal/charger"
	"github.com/mrivero/charge-controller/internal/config"
	"github.com/mrivero/charge-controller/internal/datadog"
	"github.com/mrivero/charge-controller/internal/env"
	"github.com/mrivero/charge-controller/internal/gpio"
	"github.com/mrivero/charge-controller/internal/link"
	"github.com/mrivero/charge-controller/internal/logging"
	"github.com/mrivero/charge-controller/internal/model"
	"github.com/mrivero/charge-controller/internal/notifications"
	"github.com/mrivero/charge-controller/internal/pwm"
	"github.com/mrivero/charge-controller/internal/safety"
	"github.com/mrivero/charge-controller/internal/sensor"
	"github.com/mrivero/charge-controller/internal/telemetry"
	"github.com/mrivero/charge-controller/internal/watchdog"
	"github.com/mrivero/charge-controller/system/shutdown"
	"github.com/mrivero/charge-controller/system/startup"
)

func main() {
	cfg := config.Load()
	env.Cfg = &cfg
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("db_file", cfg.DBFile).
		Str("serial", cfg.SerialDevice).
		Str("firmware", charger.FirmwareVersion).
		Msg("Starting charge controller")

	if cfg.Install {
		if err := startup.WriteStartupScript(); err != nil {
			log.Fatal().Err(err).Msg("Failed to write boot script")
		}
		if err := startup.InstallStartupService(); err != nil {
			log.Fatal().Err(err).Msg("Failed to install boot unit")
		}
		if err := startup.InstallChargerService(); err != nil {
			log.Fatal().Err(err).Msg("Failed to install main unit")
		}
		log.Info().Msg("Boot script and systemd units installed")
		return
	}

	gpio.SetSafeMode(cfg.SafeMode)
	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED — outputs are disabled system-wide")
	}

	datadog.InitMetrics()
	notifier := notifications.New(cfg.NtfyTopic)

	dbConn, err := db.Open(cfg.DBFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open state database")
	}
	defer dbConn.Close()

	if err := db.SeedDefaults(dbConn); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed state database")
	}

	tun, err := db.GetTunables(dbConn)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load tunables, using defaults")
		tun = model.DefaultTunables()
	}
	storedAh, storedBulkStart, err := db.GetCycleState(dbConn)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load cycle state, estimating from voltage")
		storedAh, storedBulkStart = -1, 0
	}

	battery := &sensor.Hwmon{Dir: cfg.Sensors.BatteryHwmonDir}
	var panel sensor.Source
	if cfg.Sensors.PanelHwmonDir != "" {
		panel = &sensor.Hwmon{Dir: cfg.Sensors.PanelHwmonDir}
	}
	ntc := &sensor.IIOChannel{Path: cfg.Sensors.NTCAdcPath}

	sampler := sensor.NewSampler(battery, panel, ntc)
	if err := sampler.Init(); err != nil {
		// the battery sensor is the one instrument we cannot run without
		log.Fatal().Err(err).Msg("Battery sensor unreadable, refusing to start")
	}

	loadPin := model.GPIOPin{Number: *cfg.GPIO.LoadControlPin, ActiveHigh: true}
	ledPin := model.GPIOPin{Number: *cfg.GPIO.SolarLEDPin, ActiveHigh: true}
	if err := gpio.Setup(loadPin); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up load control pin")
	}
	if err := gpio.Setup(ledPin); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up solar LED pin")
	}

	writeRaw := func(int) error { return nil }
	if !cfg.SafeMode {
		pwmCh, err := pwm.OpenSysfs(cfg.PWMChip, cfg.PWMChannel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open PWM channel")
		}
		writeRaw = pwmCh.WriteRaw
	}

	sup := safety.NewSupervisor(cfg.TempShutdownC,
		func() { gpio.Activate(loadPin) },
		func() { gpio.Deactivate(loadPin) },
	)

	ctrl := charger.New(charger.Options{
		DB:                dbConn,
		Sampler:           sampler,
		Safety:            sup,
		PWM:               pwm.New(writeRaw),
		Tunables:          tun,
		StoredAh:          storedAh,
		StoredBulkStart:   storedBulkStart,
		TickIntervalMs:    int64(cfg.TickIntervalMs),
		PersistIntervalMs: int64(cfg.PersistIntervalSec) * 1000,
		LEDSet: func(on bool) {
			if on {
				gpio.Activate(ledPin)
			} else {
				gpio.Deactivate(ledPin)
			}
		},
		Notifier: notifier,
	})

	stop := make(chan struct{})

	if l, err := link.Open(cfg.SerialDevice, cfg.SerialBaud, ctrl); err != nil {
		log.Error().Err(err).Msg("Supervisor link unavailable, continuing without it")
	} else {
		go l.Run(stop)
	}

	srv := api.NewServer(ctrl)
	go func() {
		if err := srv.Start(cfg.HTTPPort); err != nil {
			shutdown.ShutdownWithError(err, "Web interface failed")
		}
	}()

	if cfg.MQTTBroker != "" {
		pub, err := telemetry.New(cfg.MQTTBroker, cfg.MQTTTopic,
			time.Duration(cfg.MQTTIntervalSec)*time.Second, ctrl.SnapshotJSON)
		if err != nil {
			log.Warn().Err(err).Msg("MQTT telemetry unavailable")
		} else {
			go pub.Run(stop)
		}
	}

	wd, err := watchdog.Open(cfg.WatchdogDevice)
	if err != nil {
		log.Warn().Err(err).Msg("Hardware watchdog unavailable")
	}

	go ctrl.Run(stop, wd.Pet)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("Signal received, shutting down")
	close(stop)
	ctrl.Flush()
	wd.Close()
	shutdown.Shutdown()
}
