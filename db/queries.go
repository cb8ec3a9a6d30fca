package db

import (
	"database/sql"
	"fmt"

	"github.com/mrivero/charge-controller/internal/model"
)

// GetTunables reads the persisted charge parameters.
func GetTunables(conn *sql.DB) (model.Tunables, error) {
	var t model.Tunables
	err := conn.QueryRow(`SELECT battery_cap, threshold_perc, max_current,
		bulk_v, abs_v, float_v, is_lithium, use_fuente_dc, fuente_dc_amps, factor_divider
		FROM charger WHERE id = 1`).Scan(
		&t.BatteryCapacityAh, &t.ThresholdPercent, &t.MaxAllowedCurrent,
		&t.BulkVoltage, &t.AbsorptionVoltage, &t.FloatVoltage,
		&t.IsLithium, &t.UseDCSource, &t.DCSourceAmps, &t.FactorDivider)
	if err != nil {
		return t, fmt.Errorf("failed to get tunables: %w", err)
	}
	return t, nil
}

// GetCycleState reads the persisted accumulator and bulk stage stamp.
func GetCycleState(conn *sql.DB) (accumulatedAh float64, bulkStartMs int64, err error) {
	err = conn.QueryRow(`SELECT accumulated_ah, bulk_start_time FROM charger WHERE id = 1`).
		Scan(&accumulatedAh, &bulkStartMs)
	if err != nil {
		err = fmt.Errorf("failed to get cycle state: %w", err)
	}
	return
}
