package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/mrivero/charge-controller/internal/model"
)

// Open opens (creating if needed) the charger database and applies the
// schema.
func Open(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplySchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// ApplySchema creates the charger table if missing.
func ApplySchema(conn *sql.DB) error {
	schema, err := schemaSQL()
	if err != nil {
		return err
	}
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func schemaSQL() (string, error) {
	data, err := os.ReadFile(schemaPath())
	if err == nil {
		return string(data), nil
	}
	// fall back to the embedded copy when running from an installed binary
	return `CREATE TABLE IF NOT EXISTS charger (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    battery_cap REAL NOT NULL,
    threshold_perc REAL NOT NULL,
    max_current REAL NOT NULL,
    bulk_v REAL NOT NULL,
    abs_v REAL NOT NULL,
    float_v REAL NOT NULL,
    is_lithium BOOLEAN NOT NULL,
    use_fuente_dc BOOLEAN NOT NULL,
    fuente_dc_amps REAL NOT NULL,
    factor_divider INTEGER NOT NULL,
    accumulated_ah REAL NOT NULL DEFAULT 0,
    bulk_start_time INTEGER NOT NULL DEFAULT 0
);`, nil
}

func schemaPath() string {
	return filepath.Join("db", "schema.sql")
}

// SeedDefaults inserts the factory tunable row if the table is empty.
func SeedDefaults(conn *sql.DB) error {
	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM charger`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count charger rows: %w", err)
	}
	if count > 0 {
		return nil
	}

	t := model.DefaultTunables()
	_, err := conn.Exec(`INSERT INTO charger
		(id, battery_cap, threshold_perc, max_current, bulk_v, abs_v, float_v,
		 is_lithium, use_fuente_dc, fuente_dc_amps, factor_divider, accumulated_ah, bulk_start_time)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0)`,
		t.BatteryCapacityAh, t.ThresholdPercent, t.MaxAllowedCurrent,
		t.BulkVoltage, t.AbsorptionVoltage, t.FloatVoltage,
		t.IsLithium, t.UseDCSource, t.DCSourceAmps, t.FactorDivider)
	if err != nil {
		return fmt.Errorf("failed to seed charger defaults: %w", err)
	}

	log.Info().Msg("Charger table seeded with factory defaults")
	return nil
}
