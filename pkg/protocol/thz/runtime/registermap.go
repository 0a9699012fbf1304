package runtime

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

// Command is the register address bytes of one device command. Rendered
// as a hex string on the API surface.
type Command []byte

func (c Command) String() string {
	return hex.EncodeToString(c)
}

func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(c))
}

func (c *Command) UnmarshalJSON(bytes []byte) error {
	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid command %q", s)
	}
	*c = b
	return nil
}

// RegisterEntry describes one scalar inside a read block.
type RegisterEntry struct {
	Name    string  `json:"name"`
	Offset  int     `json:"offset"`
	Length  int     `json:"length"`
	Decoder Decoder `json:"decoder"`
	Unit    string  `json:"unit,omitempty"`
}

// ReadBlock is a named group of registers fetched in one exchange.
type ReadBlock struct {
	Name    string          `json:"name"`
	Command Command         `json:"command"`
	Entries []RegisterEntry `json:"entries"`
}

type ParameterKind int8

const (
	ParameterNumber ParameterKind = iota
	ParameterSwitch
	ParameterSelect
	ParameterTime
	ParameterSchedule
)

var ParameterKindToString = map[ParameterKind]string{
	ParameterNumber:   "number",
	ParameterSwitch:   "switch",
	ParameterSelect:   "select",
	ParameterTime:     "time",
	ParameterSchedule: "schedule",
}

var StringToParameterKind = map[string]ParameterKind{
	"number":   ParameterNumber,
	"switch":   ParameterSwitch,
	"select":   ParameterSelect,
	"time":     ParameterTime,
	"schedule": ParameterSchedule,
}

func (pk ParameterKind) MarshalJSON() ([]byte, error) {
	if s, ok := ParameterKindToString[pk]; ok {
		return json.Marshal(s)
	}
	return nil, fmt.Errorf("unknown parameter kind %d", pk)
}

func (pk *ParameterKind) UnmarshalJSON(bytes []byte) error {
	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		return err
	}
	v, ok := StringToParameterKind[s]
	if !ok {
		return fmt.Errorf("unknown parameter kind %s", s)
	}
	*pk = v
	return nil
}

// WriteParameter describes one settable device value.
type WriteParameter struct {
	Name    string        `json:"name"`
	Command Command       `json:"command"`
	Kind    ParameterKind `json:"kind"`
	Min     float64       `json:"min"`
	Max     float64       `json:"max"`
	Step    float64       `json:"step"`
	Unit    string        `json:"unit,omitempty"`
	Decoder Decoder       `json:"decoder"`
	Icon    string        `json:"icon,omitempty"`
	Options []string      `json:"options,omitempty"`
}

// FirmwareProfile is the register view of one detected firmware version:
// merged read blocks and write parameters plus the firmware's handshake
// timing. Built once per session, never mutated afterwards.
type FirmwareProfile struct {
	firmware string
	ackDelay time.Duration
	blocks   map[string]*ReadBlock
	params   map[string]*WriteParameter
}

// ResolveProfile merges the register tables configured for a firmware
// version. A technician key without its own entry drops back to the
// plain firmware tables, only the x39 generation ships a technician
// parameter set. Versions without any entry use the default profile,
// which is the newest-generation register layout.
func ResolveProfile(firmware string) *FirmwareProfile {
	cfg, ok := firmwareMaps[firmware]
	if !ok && strings.HasSuffix(firmware, technicianSuffix) {
		cfg, ok = firmwareMaps[strings.TrimSuffix(firmware, technicianSuffix)]
	}
	if !ok {
		klog.V(2).InfoS("Unknown firmware, falling back to default register maps", "firmware", firmware)
		cfg = firmwareMaps[defaultFirmware]
	}

	merged := map[string]blockDef{}
	mergeReadTable(merged, readTables[baseReadTable])
	for _, name := range cfg.read {
		table, ok := readTables[name]
		if !ok {
			klog.V(3).InfoS("Read table not present", "table", name)
			continue
		}
		mergeReadTable(merged, table)
	}

	defs := map[string]parameterDef{}
	for _, name := range cfg.write {
		table, ok := writeTables[name]
		if !ok {
			klog.V(3).InfoS("Write table not present", "table", name)
			continue
		}
		for pname, def := range table {
			defs[pname] = def
		}
	}

	profile := &FirmwareProfile{
		firmware: firmware,
		ackDelay: cfg.ackDelay,
		blocks:   make(map[string]*ReadBlock, len(merged)),
		params:   make(map[string]*WriteParameter, len(defs)),
	}
	for name, def := range merged {
		entries := make([]RegisterEntry, 0, len(def.entries))
		for _, e := range def.entries {
			entries = append(entries, RegisterEntry{
				Name:    e.name,
				Offset:  e.offset,
				Length:  e.length,
				Decoder: ParseDecoder(e.typ, e.factor),
				Unit:    e.unit,
			})
		}
		profile.blocks[name] = &ReadBlock{Name: name, Command: def.command, Entries: entries}
	}
	for name, def := range defs {
		command, err := hex.DecodeString(def.command)
		if err != nil {
			klog.V(2).InfoS("Skipping write parameter with invalid command", "parameter", name, "command", def.command)
			continue
		}
		kind, ok := StringToParameterKind[def.kind]
		if !ok {
			klog.V(2).InfoS("Skipping write parameter with unknown kind", "parameter", name, "kind", def.kind)
			continue
		}
		profile.params[name] = &WriteParameter{
			Name:    name,
			Command: command,
			Kind:    kind,
			Min:     def.min,
			Max:     def.max,
			Step:    def.step,
			Unit:    def.unit,
			Decoder: ParseDecoder(def.typ, def.factor),
			Icon:    def.icon,
			Options: def.options,
		}
	}
	return profile
}

// mergeReadTable applies the name-level replace-and-append rule: base
// entries whose trimmed name does not occur in the override survive in
// their original order, then every override entry is appended.
func mergeReadTable(merged map[string]blockDef, table readTable) {
	for name, override := range table {
		base, ok := merged[name]
		if !ok {
			merged[name] = blockDef{
				command: override.command,
				entries: append([]registerDef(nil), override.entries...),
			}
			continue
		}

		overrideNames := make(map[string]struct{}, len(override.entries))
		for _, e := range override.entries {
			overrideNames[strings.TrimSpace(e.name)] = struct{}{}
		}
		kept := make([]registerDef, 0, len(base.entries)+len(override.entries))
		for _, e := range base.entries {
			if _, dup := overrideNames[strings.TrimSpace(e.name)]; !dup {
				kept = append(kept, e)
			}
		}
		kept = append(kept, override.entries...)

		command := base.command
		if len(override.command) > 0 {
			command = override.command
		}
		merged[name] = blockDef{command: command, entries: kept}
	}
}

func (p *FirmwareProfile) FirmwareVersion() string {
	return p.firmware
}

// AckDelay is the pause between the DLE and STX halves of the request
// acknowledge. Some firmware generations emit the two bytes with a gap.
func (p *FirmwareProfile) AckDelay() time.Duration {
	return p.ackDelay
}

func (p *FirmwareProfile) AllReadBlocks() []string {
	names := make([]string, 0, len(p.blocks))
	for name := range p.blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *FirmwareProfile) Block(name string) (*ReadBlock, bool) {
	b, ok := p.blocks[name]
	return b, ok
}

func (p *FirmwareProfile) EntriesForBlock(name string) []RegisterEntry {
	if b, ok := p.blocks[name]; ok {
		return b.Entries
	}
	return nil
}

func (p *FirmwareProfile) AllWriteParameters() []*WriteParameter {
	names := make([]string, 0, len(p.params))
	for name := range p.params {
		names = append(names, name)
	}
	sort.Strings(names)
	params := make([]*WriteParameter, 0, len(names))
	for _, name := range names {
		params = append(params, p.params[name])
	}
	return params
}

func (p *FirmwareProfile) Parameter(name string) (*WriteParameter, bool) {
	param, ok := p.params[name]
	return param, ok
}
