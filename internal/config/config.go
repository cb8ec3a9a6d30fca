package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type GPIO struct {
	// load-control relay, active high enables the downstream load
	LoadControlPin *int `json:"load_control_pin"`

	// solar indicator LED
	SolarLEDPin *int `json:"solar_led_pin"`
}

type Sensors struct {
	// hwmon directories for the two high-side current/voltage sensors,
	// e.g. /sys/class/hwmon/hwmon2 for an ina2xx instance
	BatteryHwmonDir string `json:"battery_hwmon_dir"`
	PanelHwmonDir   string `json:"panel_hwmon_dir"`

	// iio sysfs voltage-raw file for the NTC thermistor divider
	NTCAdcPath string `json:"ntc_adc_path"`
}

type Config struct {
	DBFile     string
	ConfigFile string
	LogLevel   zerolog.Level
	Install    bool

	LogFile string `json:"log_file"`

	// supervisor link
	SerialDevice string `json:"serial_device"`
	SerialBaud   int    `json:"serial_baud"`

	// web interface
	HTTPPort int `json:"http_port"`

	// over-temperature shutdown; 90 for GEL cabinets, 55 for enclosed
	// lithium installs
	TempShutdownC float64 `json:"temp_shutdown_c"`

	// PWM gate drive
	PWMChip    string `json:"pwm_chip"`
	PWMChannel int    `json:"pwm_channel"`

	TickIntervalMs     int `json:"tick_interval_ms"`
	PersistIntervalSec int `json:"persist_interval_sec"`

	WatchdogDevice string `json:"watchdog_device"`

	SafeMode bool `json:"safe_mode"`

	// Datadog
	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`

	// optional MQTT snapshot publishing
	MQTTBroker      string `json:"mqtt_broker"`
	MQTTTopic       string `json:"mqtt_topic"`
	MQTTIntervalSec int    `json:"mqtt_interval_sec"`

	// optional ntfy.sh push notifications for safety events
	NtfyTopic string `json:"ntfy_topic"`

	BootScriptFilePath string `json:"boot_script_file_path"`
	OSServicePath      string `json:"os_service_path"`
	MainServicePath    string `json:"main_service_path"`

	GPIO    GPIO    `json:"gpio"`
	Sensors Sensors `json:"sensors"`
}

func Load() Config {
	// .env can point at an alternate config file or override the broker
	// address without touching the systemd unit
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "warning: could not load .env:", err)
	}

	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.DBFile, "db-file", envOr("CHARGER_DB_FILE", "data/charger.db"), "Path to the sqlite state database")
	flag.StringVar(&cfg.ConfigFile, "config-file", envOr("CHARGER_CONFIG_FILE", "config.json"), "Path to controller config file")
	flag.StringVar(&logLevel, "log-level", envOr("CHARGER_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.Install, "install", false, "Write the boot script and systemd units, then exit")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	if addr := os.Getenv("CHARGER_DD_AGENT_ADDR"); addr != "" {
		cfg.DDAgentAddr = addr
	}
	if broker := os.Getenv("CHARGER_MQTT_BROKER"); broker != "" {
		cfg.MQTTBroker = broker
	}

	cfg.applyDefaults()
	cfg.validate()
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (cfg *Config) applyDefaults() {
	if cfg.LogFile == "" {
		cfg.LogFile = "/var/log/charge-controller.log"
	}
	if cfg.SerialBaud == 0 {
		cfg.SerialBaud = 9600
	}
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = 8080
	}
	if cfg.TempShutdownC == 0 {
		cfg.TempShutdownC = 90
	}
	if cfg.TickIntervalMs == 0 {
		cfg.TickIntervalMs = 1000
	}
	if cfg.PersistIntervalSec == 0 {
		cfg.PersistIntervalSec = 300
	}
	if cfg.MQTTIntervalSec == 0 {
		cfg.MQTTIntervalSec = 30
	}
	if cfg.PWMChip == "" {
		cfg.PWMChip = "/sys/class/pwm/pwmchip0"
	}
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) validate() {
	var missing []string

	if cfg.GPIO.LoadControlPin == nil {
		missing = append(missing, "gpio.load_control_pin")
	}
	if cfg.GPIO.SolarLEDPin == nil {
		missing = append(missing, "gpio.solar_led_pin")
	}
	if cfg.Sensors.BatteryHwmonDir == "" {
		missing = append(missing, "sensors.battery_hwmon_dir")
	}
	if cfg.Sensors.NTCAdcPath == "" {
		missing = append(missing, "sensors.ntc_adc_path")
	}
	if cfg.SerialDevice == "" {
		missing = append(missing, "serial_device")
	}
	if len(missing) > 0 {
		panic("Missing required config fields: " + strings.Join(missing, ", "))
	}

	if cfg.GPIO.LoadControlPin != nil && cfg.GPIO.SolarLEDPin != nil &&
		*cfg.GPIO.LoadControlPin == *cfg.GPIO.SolarLEDPin {
		panic(fmt.Sprintf("Conflicting GPIO pins: load_control_pin and solar_led_pin both use pin %d", *cfg.GPIO.LoadControlPin))
	}

	if cfg.TempShutdownC != 90 && cfg.TempShutdownC != 55 {
		panic(fmt.Sprintf("temp_shutdown_c must be 90 or 55, got %v", cfg.TempShutdownC))
	}
}
