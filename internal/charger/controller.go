package charger

import (
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/charge-controller/db"
	"github.com/mrivero/charge-controller/internal/coulomb"
	"github.com/mrivero/charge-controller/internal/datadog"
	"github.com/mrivero/charge-controller/internal/model"
	"github.com/mrivero/charge-controller/internal/pwm"
	"github.com/mrivero/charge-controller/internal/safety"
)

const FirmwareVersion = "2.4.1"

// SignalSampler is the per-tick signal source.
type SignalSampler interface {
	Sample(maxAllowedMA float64) model.Signals
	CheckPanel(nowMs int64)
}

// Notifier pushes human-facing event messages.
type Notifier interface {
	Send(title, message string) error
}

// Controller owns the whole charge-control state: tunables, cycle state,
// the stage machine and the duty register. Everything that mutates it
// (the tick, the serial dispatcher, the web handlers) goes through the
// mutex, so command writes always land between ticks.
type Controller struct {
	mu sync.Mutex

	dbConn  *sql.DB
	sampler SignalSampler
	counter *coulomb.Counter
	sup     *safety.Supervisor
	reg     *pwm.Regulator

	tun   model.Tunables
	state model.ChargeState
	sig   model.Signals
	note  string

	bulkStartMs       int64
	absorptionStartMs int64
	absorptionHours   float64

	// monotonic stamp of the first all-clear observation while in error
	errorClearSinceMs int64

	// latched by a confirmed panel-current loss; holds the duty at zero
	// until the panel produces again
	panelLost bool

	tickIntervalMs    int64
	persistIntervalMs int64
	lastTickMs        int64
	lastPersistMs     int64

	bootTime time.Time

	// solar indicator
	ledSet      func(on bool)
	ledOn       bool
	lastBlinkMs int64

	notifier Notifier

	// monotonic clock seam for tests
	now func() int64
}

type Options struct {
	DB      *sql.DB
	Sampler SignalSampler
	Safety  *safety.Supervisor
	PWM     *pwm.Regulator

	Tunables model.Tunables

	// restored cycle state
	StoredAh        float64
	StoredBulkStart int64

	TickIntervalMs    int64
	PersistIntervalMs int64

	LEDSet   func(on bool)
	Notifier Notifier
}

func New(opts Options) *Controller {
	c := &Controller{
		dbConn:            opts.DB,
		sampler:           opts.Sampler,
		counter:           &coulomb.Counter{},
		sup:               opts.Safety,
		reg:               opts.PWM,
		tun:               opts.Tunables,
		tickIntervalMs:    opts.TickIntervalMs,
		persistIntervalMs: opts.PersistIntervalMs,
		bootTime:          time.Now(),
		ledSet:            opts.LEDSet,
		notifier:          opts.Notifier,
	}
	if c.tickIntervalMs == 0 {
		c.tickIntervalMs = 1000
	}
	if c.persistIntervalMs == 0 {
		c.persistIntervalMs = 300_000
	}
	if c.ledSet == nil {
		c.ledSet = func(bool) {}
	}
	start := time.Now()
	c.now = func() int64 { return time.Since(start).Milliseconds() }

	c.sup.Notify = c.noteEvent

	c.sig = c.sampler.Sample(c.tun.MaxAllowedCurrent)
	c.counter.Restore(opts.StoredAh, c.tun.BatteryCapacityAh, c.sig.BatteryVoltage)
	c.bulkStartMs = opts.StoredBulkStart

	c.state = c.bootState()
	if c.state == model.StateBulk && c.bulkStartMs == 0 {
		c.bulkStartMs = c.now()
	}
	if c.state == model.StateAbsorption {
		c.absorptionStartMs = c.now()
	}

	// the startup script leaves the load pin disabled; the first tick's
	// LVR check brings it up if the battery allows
	c.sup.ForceLoadState(false)
	if c.state == model.StateError {
		c.noteEvent("Boot blocked by unsafe battery or temperature reading")
		c.reg.Set(model.ErrorTickleDuty)
	} else {
		c.setNote("Controller started in " + string(c.state))
		c.reg.Set(0)
	}

	log.Info().
		Str("state", string(c.state)).
		Float64("battery_v", c.sig.BatteryVoltage).
		Float64("accumulated_ah", c.counter.AccumulatedAh()).
		Msg("Charge controller initialized")

	return c
}

// bootState picks the initial stage from the resting battery voltage and
// chemistry, unless a safety signal is already out of range.
func (c *Controller) bootState() model.ChargeState {
	if c.sup.Unsafe(c.sig.BatteryVoltage, c.sig.BatteryTempC) {
		return model.StateError
	}
	if c.sig.BatteryVoltage >= model.ChargedBatteryRestVoltage {
		if c.tun.IsLithium {
			return model.StateAbsorption
		}
		return model.StateFloat
	}
	return model.StateBulk
}

// Run is the cooperative super-loop. Sampling and regulation happen on
// the 1 s tick; the coulomb counter, persistence flush and panel recheck
// run every iteration.
func (c *Controller) Run(stop <-chan struct{}, pet func()) {
	for {
		select {
		case <-stop:
			log.Info().Msg("Controller loop stopping")
			return
		default:
		}
		if pet != nil {
			pet()
		}
		c.RunOnce(c.now())
		time.Sleep(50 * time.Millisecond)
	}
}

// RunOnce performs one super-loop iteration at the given monotonic time.
func (c *Controller) RunOnce(nowMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sampler.CheckPanel(nowMs)
	c.counter.Update(nowMs, c.sig.PanelCurrentMA, c.sig.LoadCurrentMA, c.tun.BatteryCapacityAh)

	if nowMs-c.lastPersistMs >= c.persistIntervalMs {
		c.lastPersistMs = nowMs
		c.persistCycleState()
	}

	if nowMs-c.lastTickMs >= c.tickIntervalMs {
		c.lastTickMs = nowMs
		c.tick(nowMs)
	}
}

// tick runs the strict per-second sequence: sample, safety checks, state
// step with its duty law, indicator and metrics.
func (c *Controller) tick(nowMs int64) {
	c.sig = c.sampler.Sample(c.tun.MaxAllowedCurrent)

	if c.state != model.StateError {
		overV := c.sup.ConfirmOverVoltage(nowMs, c.sig.BatteryVoltage)
		overT := c.sup.ConfirmOverTemperature(nowMs, c.sig.BatteryTempC)
		if overV || overT {
			c.enterError(nowMs)
		}
	} else {
		clear := !c.sup.Unsafe(c.sig.BatteryVoltage, c.sig.BatteryTempC) &&
			c.sig.BatteryVoltage >= model.LVD
		switch {
		case !clear:
			c.errorClearSinceMs = 0
		case c.errorClearSinceMs == 0:
			c.errorClearSinceMs = nowMs
		case nowMs-c.errorClearSinceMs >= 2000:
			c.errorClearSinceMs = 0
			c.exitError(nowMs)
		}
	}

	if c.panelLost && c.sig.PanelCurrentMA > model.PanelCurrentFloorMA {
		c.panelLost = false
		c.setNote("Panel producing again, resuming regulation")
	}
	if c.sup.ConfirmPanelLoss(nowMs, c.sig.PanelCurrentMA, c.reg.Duty()) {
		c.panelLost = true
		c.reg.Set(0)
		c.setNote("Panel current lost, PWM disabled")
	}

	c.sup.UpdateLoadControl(nowMs, c.sig.BatteryVoltage, c.state)

	if c.state != model.StateError &&
		c.sup.SustainedBulkReentry(nowMs, c.sig.BatteryVoltage, c.state) {
		c.transitionToBulk(nowMs)
	}

	c.step(nowMs)
	c.updateLED(nowMs)
	c.emitMetrics()
}

func (c *Controller) updateLED(nowMs int64) {
	if c.state == model.StateError {
		if nowMs-c.lastBlinkMs >= 500 {
			c.lastBlinkMs = nowMs
			c.ledOn = !c.ledOn
			c.ledSet(c.ledOn)
		}
		return
	}
	producing := c.sig.PanelCurrentMA > model.PanelCurrentFloorMA
	if producing != c.ledOn {
		c.ledOn = producing
		c.ledSet(producing)
	}
}

func (c *Controller) emitMetrics() {
	datadog.Gauge("battery.voltage", c.sig.BatteryVoltage, "component:sensor")
	datadog.Gauge("panel.voltage", c.sig.PanelVoltage, "component:sensor")
	datadog.Gauge("panel.current_ma", c.sig.PanelCurrentMA, "component:sensor")
	datadog.Gauge("load.current_ma", c.sig.LoadCurrentMA, "component:sensor")
	datadog.Gauge("battery.temperature_c", c.sig.BatteryTempC, "component:sensor")
	datadog.Gauge("charge.duty", float64(c.reg.Duty()), "component:regulator")
	datadog.Gauge("charge.accumulated_ah", c.counter.AccumulatedAh(), "component:coulomb")
	datadog.Gauge("charge.soc", c.counter.SOC(c.tun.BatteryCapacityAh), "component:coulomb")
	datadog.Gauge("charge.state", stateMetric(c.state), "component:state_machine")
}

func stateMetric(s model.ChargeState) float64 {
	switch s {
	case model.StateBulk:
		return 0
	case model.StateAbsorption:
		return 1
	case model.StateFloat:
		return 2
	default:
		return 3
	}
}

func (c *Controller) persistCycleState() {
	if c.dbConn == nil {
		return
	}
	if err := db.SaveCycleState(c.dbConn, c.counter.AccumulatedAh(), c.bulkStartMs); err != nil {
		log.Error().Err(err).Msg("Failed to persist cycle state")
	}
}

func (c *Controller) persistTunables() {
	if c.dbConn == nil {
		return
	}
	if err := db.SaveTunables(c.dbConn, c.tun); err != nil {
		log.Error().Err(err).Msg("Failed to persist tunables")
	}
}

// setNote updates the status note shown on the dashboard and the
// supervisor link.
func (c *Controller) setNote(msg string) {
	c.note = msg
	log.Debug().Str("note", msg).Msg("Status note updated")
}

// noteEvent records a safety event and pushes it if notifications are
// configured.
func (c *Controller) noteEvent(msg string) {
	c.note = msg
	if c.notifier != nil {
		// sent off the loop so a slow push service never stalls the tick
		go func(n Notifier) {
			if err := n.Send("charge-controller", msg); err != nil {
				log.Debug().Err(err).Msg("Notification send failed")
			}
		}(c.notifier)
	}
}

// Flush persists the cycle state immediately; called on clean shutdown.
func (c *Controller) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persistCycleState()
}

// NowMs exposes the controller's monotonic clock.
func (c *Controller) NowMs() int64 {
	return c.now()
}

// SetClock replaces the monotonic clock. Tests only.
func (c *Controller) SetClock(now func() int64) {
	c.now = now
}
