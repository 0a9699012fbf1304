package runtime

import "time"

// Register tables, abridged to the commonly wired registers of each
// firmware generation. Entries are authored with the decode tags of the
// service documentation and parsed into Decoders once at profile build.
//
// Block commands: the 2xx generation exposes settings pages on low
// command bytes (0x05..0x17) and live data on 0xE8..0xFC; the x39
// generation keeps the high pages only.

type registerDef struct {
	name   string
	offset int
	length int
	typ    string
	factor float64
	unit   string
}

type blockDef struct {
	command Command
	entries []registerDef
}

type readTable map[string]blockDef

type parameterDef struct {
	command string
	kind    string
	min     float64
	max     float64
	step    float64
	unit    string
	typ     string
	factor  float64
	icon    string
	options []string
}

type writeTable map[string]parameterDef

type firmwareTables struct {
	read     []string
	write    []string
	ackDelay time.Duration
}

const (
	baseReadTable    = "register_map_all"
	defaultFirmware  = "default"
	technicianSuffix = "technician"

	// The 2xx firmware generation emits the two acknowledge bytes with a
	// gap; give the second byte time to arrive.
	ackDelay2xx = 5 * time.Millisecond
)

// firmwareMaps selects the table composition per firmware version.
// Adding a firmware is a data change here, never a merge-code change.
var firmwareMaps = map[string]firmwareTables{
	"206": {
		read:     []string{"register_map_206"},
		write:    []string{"write_map_206"},
		ackDelay: ackDelay2xx,
	},
	"214": {
		read:     []string{"register_map_214"},
		write:    []string{"write_map_206", "write_map_214"},
		ackDelay: ackDelay2xx,
	},
	"214j": {
		read:     []string{"register_map_214j"},
		write:    []string{"write_map_206", "write_map_214"},
		ackDelay: ackDelay2xx,
	},
	"439": {
		read:  []string{"readings_map_439"},
		write: []string{"write_map_439_539", "write_map_439"},
	},
	"439technician": {
		read:  []string{"readings_map_439"},
		write: []string{"write_map_439_539", "write_map_439", "write_map_X39tech"},
	},
	"539technician": {
		read:  []string{"readings_map_539"},
		write: []string{"write_map_439_539", "write_map_539", "write_map_X39tech"},
	},
	// 539 units without a dedicated entry resolve here as well.
	defaultFirmware: {
		read:  []string{"readings_map_539"},
		write: []string{"write_map_439_539", "write_map_539"},
	},
}

var readTables = map[string]readTable{
	baseReadTable:      registerMapAll,
	"register_map_206": registerMap206,
	"register_map_214": registerMap214,
	"register_map_214j": registerMap214j,
	"readings_map_439": readingsMap439,
	"readings_map_539": readingsMap539,
}

var writeTables = map[string]writeTable{
	"write_map_206":     writeMap206,
	"write_map_214":     writeMap214,
	"write_map_439_539": writeMap439539,
	"write_map_439":     writeMap439,
	"write_map_539":     writeMap539,
	"write_map_X39tech": writeMapX39Tech,
}

// registerMapAll is the base read map every firmware starts from.
var registerMapAll = readTable{
	"sFirmware": {
		command: Command{0xFD},
		entries: []registerDef{
			{name: "version", offset: 2, length: 2, typ: "hex"},
		},
	},
	"sTimedate": {
		command: Command{0xFC},
		entries: []registerDef{
			{name: "weekday", offset: 2, length: 1, typ: "hex"},
			{name: "hour", offset: 3, length: 1, typ: "hex"},
			{name: "minute", offset: 4, length: 1, typ: "hex"},
			{name: "second", offset: 5, length: 1, typ: "hex"},
			{name: "year", offset: 6, length: 1, typ: "hex"},
			{name: "month", offset: 7, length: 1, typ: "hex"},
			{name: "day", offset: 8, length: 1, typ: "hex"},
		},
	},
	"sGlobal": {
		command: Command{0xFB},
		entries: []registerDef{
			{name: "collectorTemp", offset: 2, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "outsideTemp", offset: 4, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "flowTemp", offset: 6, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "returnTemp", offset: 8, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "hotGasTemp", offset: 10, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "dhwTemp", offset: 12, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "flowTempHC2", offset: 14, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "evaporatorTemp", offset: 16, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "condenserTemp", offset: 18, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "heatPipeValve", offset: 20, length: 1, typ: "bit0"},
			{name: "diverterValve", offset: 20, length: 1, typ: "bit1"},
			{name: "dhwPump", offset: 20, length: 1, typ: "bit2"},
			{name: "heatingCircuitPump", offset: 20, length: 1, typ: "bit3"},
			{name: "mixerOpen", offset: 21, length: 1, typ: "bit0"},
			{name: "mixerClosed", offset: 21, length: 1, typ: "nbit0"},
			{name: "compressorRelay", offset: 21, length: 1, typ: "bit2"},
			{name: "boosterStage1", offset: 21, length: 1, typ: "bit3"},
			{name: "inputFanSpeed", offset: 22, length: 1, typ: "hex", unit: "%"},
			{name: "outputFanSpeed", offset: 23, length: 1, typ: "hex", unit: "%"},
			{name: "mainFanSpeed", offset: 24, length: 1, typ: "hex", unit: "%"},
			{name: "inputFanPower", offset: 25, length: 1, typ: "hex", unit: "%"},
			{name: "outputFanPower", offset: 26, length: 1, typ: "hex", unit: "%"},
			{name: "mainFanPower", offset: 27, length: 1, typ: "hex", unit: "%"},
		},
	},
	"sDHW": {
		command: Command{0xF3},
		entries: []registerDef{
			{name: "dhwTemp", offset: 2, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "dhwSetTemp", offset: 4, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "dhwBoosterStage", offset: 8, length: 1, typ: "hex"},
		},
	},
	"sLast10errors": {
		command: Command{0xD1},
		entries: []registerDef{
			{name: "numberOfFaults", offset: 2, length: 1, typ: "hex"},
			{name: "fault0Code", offset: 4, length: 2, typ: "hex"},
			{name: "fault0Time", offset: 6, length: 2, typ: "hex"},
			{name: "fault1Code", offset: 8, length: 2, typ: "hex"},
		},
	},
}

// registerMap206 adjusts the base map to the 206 firmware layout. The
// old generation reports outside and flow temperatures two bytes later
// and exposes the history page.
var registerMap206 = readTable{
	"sGlobal": {
		entries: []registerDef{
			{name: "outsideTemp", offset: 6, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "flowTemp", offset: 8, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "returnTemp", offset: 10, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "integralHeat", offset: 28, length: 2, typ: "hex2int", factor: 1, unit: "Kmin"},
		},
	},
	"sHistory": {
		command: Command{0x09},
		entries: []registerDef{
			{name: "compressorStarts", offset: 2, length: 2, typ: "hex"},
			{name: "compressorHeatingHours", offset: 4, length: 2, typ: "hex", unit: "h"},
			{name: "compressorDHWHours", offset: 6, length: 2, typ: "hex", unit: "h"},
			{name: "boosterHeatingHours", offset: 8, length: 2, typ: "hex", unit: "h"},
		},
	},
	"sFan": {
		command: Command{0xE8},
		entries: []registerDef{
			{name: "fanStageDay", offset: 2, length: 1, typ: "hex"},
			{name: "fanStageNight", offset: 3, length: 1, typ: "hex"},
			{name: "inputFanSetpoint", offset: 4, length: 1, typ: "hex", unit: "%"},
			{name: "outputFanSetpoint", offset: 5, length: 1, typ: "hex", unit: "%"},
		},
	},
}

// registerMap214 extends the 206 layout with the solar page.
var registerMap214 = readTable{
	"sGlobal": registerMap206["sGlobal"],
	"sHistory": registerMap206["sHistory"],
	"sFan":     registerMap206["sFan"],
	"sSol": {
		command: Command{0x16},
		entries: []registerDef{
			{name: "solarCollectorTemp", offset: 2, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "solarStorageTemp", offset: 4, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "solarRuntime", offset: 6, length: 2, typ: "hex", unit: "h"},
		},
	},
}

// registerMap214j carries the 214 layout with the revised evaporator
// scaling of the j revision.
var registerMap214j = readTable{
	"sGlobal": {
		entries: append(append([]registerDef(nil), registerMap206["sGlobal"].entries...),
			registerDef{name: "evaporatorTemp", offset: 16, length: 2, typ: "hex2int", factor: 100, unit: "°C"},
		),
	},
	"sHistory": registerMap206["sHistory"],
	"sFan":     registerMap206["sFan"],
	"sSol":     registerMap214["sSol"],
}

// readingsMap439 is the x39 generation layout: pressures and energy
// counters join the global page, heating circuits get their own pages.
var readingsMap439 = readTable{
	"sGlobal": {
		entries: []registerDef{
			{name: "highPressure", offset: 28, length: 2, typ: "hex2int", factor: 100, unit: "bar"},
			{name: "lowPressure", offset: 30, length: 2, typ: "hex2int", factor: 100, unit: "bar"},
			{name: "compressorPower", offset: 32, length: 2, typ: "hex2int", factor: 10, unit: "W"},
			{name: "heatRecoveredDay", offset: 34, length: 4, typ: "esp_mant", unit: "Wh"},
			{name: "heatRecoveredTotal", offset: 38, length: 4, typ: "esp_mant", unit: "kWh"},
		},
	},
	"sHC1": {
		command: Command{0xF4},
		entries: []registerDef{
			{name: "outsideTempFiltered", offset: 2, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "flowSetTemp", offset: 4, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "roomSetTemp", offset: 6, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "integralHeat", offset: 8, length: 2, typ: "hex2int", factor: 1, unit: "Kmin"},
			{name: "seasonMode", offset: 10, length: 1, typ: "hex"},
		},
	},
	"sHC2": {
		command: Command{0xF5},
		entries: []registerDef{
			{name: "flowSetTempHC2", offset: 2, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
			{name: "roomSetTempHC2", offset: 4, length: 2, typ: "hex2int", factor: 10, unit: "°C"},
		},
	},
	"sElectrDHW": {
		command: Command{0x0A},
		entries: []registerDef{
			{name: "electrDHWDay", offset: 2, length: 4, typ: "esp_mant", unit: "Wh"},
			{name: "electrDHWTotal", offset: 6, length: 4, typ: "esp_mant", unit: "kWh"},
		},
	},
}

// readingsMap539 is the 439 layout plus the ventilation diagnostics of
// the LWZ 504/404 line.
var readingsMap539 = readTable{
	"sGlobal":    readingsMap439["sGlobal"],
	"sHC1":       readingsMap439["sHC1"],
	"sHC2":       readingsMap439["sHC2"],
	"sElectrDHW": readingsMap439["sElectrDHW"],
	"sFanDiag": {
		command: Command{0xE9},
		entries: []registerDef{
			{name: "inputFanRPM", offset: 2, length: 2, typ: "hex", unit: "rpm"},
			{name: "outputFanRPM", offset: 4, length: 2, typ: "hex", unit: "rpm"},
			{name: "filterHours", offset: 6, length: 2, typ: "hex", unit: "h"},
			{name: "filterWarning", offset: 8, length: 1, typ: "bit1"},
		},
	},
}

var writeMap206 = writeTable{
	"p01RoomTempDay": {
		command: "0B0005", kind: "number",
		min: 10, max: 30, step: 0.5, unit: "°C",
		typ: "hex2int", factor: 10, icon: "mdi:thermometer",
	},
	"p02RoomTempNight": {
		command: "0B0008", kind: "number",
		min: 10, max: 30, step: 0.5, unit: "°C",
		typ: "hex2int", factor: 10, icon: "mdi:thermometer",
	},
	"p04DHWTempDay": {
		command: "0B0013", kind: "number",
		min: 10, max: 55, step: 0.5, unit: "°C",
		typ: "hex2int", factor: 10, icon: "mdi:water-boiler",
	},
	"p07FanStageDay": {
		command: "0B0018", kind: "number",
		min: 0, max: 3, step: 1,
		typ: "0clean", icon: "mdi:fan",
	},
	"p99OperatingMode": {
		command: "0B0112", kind: "select",
		typ: "0clean", icon: "mdi:home-thermometer",
		options: []string{"emergency", "standby", "program", "comfort", "eco", "dhw"},
	},
	"p05DHWStartTime": {
		command: "0B0064", kind: "time",
		typ: "0clean", icon: "mdi:clock-outline",
	},
	"progHC1Mon1": {
		command: "0B1410", kind: "schedule",
		typ: "hex", icon: "mdi:calendar-clock",
	},
}

var writeMap214 = writeTable{
	// The 214 controller gains automatic mode.
	"p99OperatingMode": {
		command: "0B0112", kind: "select",
		typ: "0clean", icon: "mdi:home-thermometer",
		options: []string{"emergency", "standby", "program", "comfort", "eco", "dhw", "auto"},
	},
	"p75PassiveCooling": {
		command: "0B0575", kind: "switch",
		typ: "hex2int", icon: "mdi:snowflake",
	},
}

var writeMap439539 = writeTable{
	"p01RoomTempDay": {
		command: "0B0005", kind: "number",
		min: 10, max: 30, step: 0.1, unit: "°C",
		typ: "hex2int", factor: 10, icon: "mdi:thermometer",
	},
	"p02RoomTempNight": {
		command: "0B0008", kind: "number",
		min: 10, max: 30, step: 0.1, unit: "°C",
		typ: "hex2int", factor: 10, icon: "mdi:thermometer",
	},
	"p04DHWTempDay": {
		command: "0B0013", kind: "number",
		min: 10, max: 60, step: 0.1, unit: "°C",
		typ: "hex2int", factor: 10, icon: "mdi:water-boiler",
	},
	"p99OperatingMode": {
		command: "0B0112", kind: "select",
		typ: "0clean", icon: "mdi:home-thermometer",
		options: []string{"emergency", "standby", "program", "comfort", "eco", "dhw", "auto"},
	},
	"p83DHWBooster": {
		command: "0B0582", kind: "switch",
		typ: "hex2int", icon: "mdi:flash",
	},
	"p05DHWStartTime": {
		command: "0B0064", kind: "time",
		typ: "0clean", icon: "mdi:clock-outline",
	},
	"progHC1Mon1": {
		command: "0B1410", kind: "schedule",
		typ: "hex", icon: "mdi:calendar-clock",
	},
}

var writeMap439 = writeTable{
	"p75VentilationRate": {
		command: "0B059C", kind: "number",
		min: 0, max: 3, step: 1,
		typ: "0clean", icon: "mdi:fan",
	},
}

var writeMap539 = writeTable{
	"p75VentilationRate": {
		command: "0B059C", kind: "number",
		min: 0, max: 4, step: 1,
		typ: "0clean", icon: "mdi:fan",
	},
	"p89SummerModeTemp": {
		command: "0B05A0", kind: "number",
		min: 10, max: 25, step: 0.1, unit: "°C",
		typ: "hex2int", factor: 10, icon: "mdi:weather-sunny",
	},
}

// writeMapX39Tech holds service parameters only technician profiles
// expose.
var writeMapX39Tech = writeTable{
	"pCompressorLockTime": {
		command: "0B0640", kind: "number",
		min: 0, max: 120, step: 1, unit: "min",
		typ: "hex2int", icon: "mdi:timer-lock",
	},
	"pDefrostStartThreshold": {
		command: "0B0644", kind: "number",
		min: -10, max: 10, step: 0.1, unit: "°C",
		typ: "hex2int", factor: 10, icon: "mdi:snowflake-melt",
	},
}
