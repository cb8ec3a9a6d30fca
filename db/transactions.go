package db

import (
	"database/sql"
	"fmt"

	"github.com/mrivero/charge-controller/internal/model"
)

// SaveTunables writes the whole tunable set. Called immediately after any
// accepted SET command.
func SaveTunables(conn *sql.DB, t model.Tunables) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	_, err = tx.Exec(`UPDATE charger SET battery_cap = ?, threshold_perc = ?,
		max_current = ?, bulk_v = ?, abs_v = ?, float_v = ?,
		is_lithium = ?, use_fuente_dc = ?, fuente_dc_amps = ?, factor_divider = ?
		WHERE id = 1`,
		t.BatteryCapacityAh, t.ThresholdPercent, t.MaxAllowedCurrent,
		t.BulkVoltage, t.AbsorptionVoltage, t.FloatVoltage,
		t.IsLithium, t.UseDCSource, t.DCSourceAmps, t.FactorDivider)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("update tunables: %w", err)
	}
	return tx.Commit()
}

// SaveCycleState flushes the accumulator and the bulk stage stamp. Runs on
// the five-minute cadence and on stage transitions.
func SaveCycleState(conn *sql.DB, accumulatedAh float64, bulkStartMs int64) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	_, err = tx.Exec(`UPDATE charger SET accumulated_ah = ?, bulk_start_time = ? WHERE id = 1`,
		accumulatedAh, bulkStartMs)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("update cycle state: %w", err)
	}
	return tx.Commit()
}
