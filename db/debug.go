package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DumpCLI prints the persisted charger row for the debug binary.
func DumpCLI(dbPath string) error {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	t, err := GetTunables(conn)
	if err != nil {
		return err
	}
	ah, bulkStart, err := GetCycleState(conn)
	if err != nil {
		return err
	}

	fmt.Printf("battery_cap:     %.1f Ah\n", t.BatteryCapacityAh)
	fmt.Printf("threshold_perc:  %.2f %%\n", t.ThresholdPercent)
	fmt.Printf("max_current:     %.0f mA\n", t.MaxAllowedCurrent)
	fmt.Printf("bulk_v:          %.2f V\n", t.BulkVoltage)
	fmt.Printf("abs_v:           %.2f V\n", t.AbsorptionVoltage)
	fmt.Printf("float_v:         %.2f V\n", t.FloatVoltage)
	fmt.Printf("is_lithium:      %v\n", t.IsLithium)
	fmt.Printf("use_fuente_dc:   %v\n", t.UseDCSource)
	fmt.Printf("fuente_dc_amps:  %.1f A\n", t.DCSourceAmps)
	fmt.Printf("factor_divider:  %d\n", t.FactorDivider)
	fmt.Printf("accumulated_ah:  %.3f Ah\n", ah)
	fmt.Printf("bulk_start_time: %d ms\n", bulkStart)
	return nil
}

// ResetCycleCLI marks the stored accumulator invalid (a negative value,
// which the restore rejects) and clears the bulk stamp, forcing a
// voltage-based SOC estimate at next boot.
func ResetCycleCLI(dbPath string) error {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()
	return SaveCycleState(conn, -1, 0)
}
