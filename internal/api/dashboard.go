package api

import "html/template"

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Charge Controller</title>
<style>
body { font-family: sans-serif; margin: 1em auto; max-width: 640px; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1em; }
td { border: 1px solid #ccc; padding: 4px 8px; }
#chargeState { font-weight: bold; }
form { margin-bottom: 0.5em; }
input[type=number], input[type=text] { width: 6em; }
</style>
</head>
<body>
<h1>Solar Charge Controller</h1>
<table>
<tr><td>Charge state</td><td id="chargeState">{{.ChargeState}}</td></tr>
<tr><td>Panel &rarr; battery current</td><td><span id="panelToBatteryCurrent">{{.PanelToBatteryCurrent}}</span> mA</td></tr>
<tr><td>Battery &rarr; load current</td><td><span id="batteryToLoadCurrent">{{.BatteryToLoadCurrent}}</span> mA</td></tr>
<tr><td>Panel voltage</td><td><span id="voltagePanel">{{.VoltagePanel}}</span> V</td></tr>
<tr><td>Battery voltage</td><td><span id="voltageBatterySensor2">{{.VoltageBatterySensor2}}</span> V</td></tr>
<tr><td>PWM duty</td><td id="currentPWM">{{.CurrentPWM}}</td></tr>
<tr><td>Temperature</td><td><span id="temperature">{{.Temperature}}</span> &deg;C</td></tr>
<tr><td>Estimated SOC</td><td><span id="estimatedSOC">{{.EstimatedSOC}}</span> %</td></tr>
<tr><td>Accumulated</td><td><span id="accumulatedAh">{{.AccumulatedAh}}</span> Ah</td></tr>
<tr><td>Net current</td><td><span id="netCurrent">{{.NetCurrent}}</span> mA</td></tr>
<tr><td>Load control</td><td id="loadControlState">{{.LoadControlState}}</td></tr>
<tr><td>Note</td><td id="notaPersonalizada">{{.NotaPersonalizada}}</td></tr>
</table>

<h2>Load</h2>
<form action="/toggle-load" method="POST">
<label>Switch load off for <input type="number" name="seconds" min="1" max="300" value="60"> seconds</label>
<button type="submit">Apply</button>
</form>

<h2>Parameters</h2>
<form action="/update" method="POST">
<table>
<tr><td>Battery capacity (Ah)</td><td><input type="number" step="0.1" name="batteryCapacity" value="{{.BatteryCapacity}}"></td></tr>
<tr><td>Threshold (%)</td><td><input type="number" step="0.1" name="thresholdPercentage" value="{{.ThresholdPercentage}}"></td></tr>
<tr><td>Max current (mA)</td><td><input type="number" name="maxAllowedCurrent" value="{{.MaxAllowedCurrent}}"></td></tr>
<tr><td>Bulk voltage (V)</td><td><input type="number" step="0.01" name="bulkVoltage" value="{{.BulkVoltage}}"></td></tr>
<tr><td>Absorption voltage (V)</td><td><input type="number" step="0.01" name="absorptionVoltage" value="{{.AbsorptionVoltage}}"></td></tr>
<tr><td>Float voltage (V)</td><td><input type="number" step="0.01" name="floatVoltage" value="{{.FloatVoltage}}"></td></tr>
<tr><td>Lithium chemistry</td><td><input type="text" name="isLithium" value="{{.IsLithium}}"></td></tr>
<tr><td>Use DC source</td><td><input type="text" name="useFuenteDC" value="{{.UseFuenteDC}}"></td></tr>
<tr><td>DC source amps</td><td><input type="number" step="0.1" name="fuenteDC_Amps" value="{{.FuenteDCAmps}}"></td></tr>
<tr><td>Factor divider</td><td><input type="number" name="factorDivider" value="{{.FactorDivider}}"></td></tr>
</table>
<button type="submit">Save</button>
</form>

<script>
function updateField(id, value) {
  var el = document.getElementById(id);
  if (el) { el.textContent = value; }
}
function updateData() {
  fetch('/data').then(function(r) { return r.json(); }).then(function(data) {
    updateField('chargeState', data.chargeState);
    updateField('panelToBatteryCurrent', data.panelToBatteryCurrent.toFixed(0));
    updateField('batteryToLoadCurrent', data.batteryToLoadCurrent.toFixed(0));
    updateField('voltagePanel', data.voltagePanel.toFixed(2));
    updateField('voltageBatterySensor2', data.voltageBatterySensor2.toFixed(2));
    updateField('currentPWM', data.currentPWM);
    updateField('temperature', data.temperature.toFixed(1));
    updateField('estimatedSOC', data.estimatedSOC.toFixed(1));
    updateField('accumulatedAh', data.accumulatedAh.toFixed(2));
    updateField('netCurrent', data.netCurrent.toFixed(0));
    updateField('loadControlState', data.loadControlState);
    updateField('notaPersonalizada', data.notaPersonalizada);
  }).catch(function() {});
}
updateData();
setInterval(updateData, 1000);
</script>
</body>
</html>
`))
