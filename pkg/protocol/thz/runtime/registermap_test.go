package runtime

import (
	"bytes"
	"sort"
	"testing"
	"time"
)

func findEntry(t *testing.T, profile *FirmwareProfile, block string, name string) RegisterEntry {
	t.Helper()
	for _, entry := range profile.EntriesForBlock(block) {
		if entry.Name == name {
			return entry
		}
	}
	t.Fatalf("entry %s not found in block %s", name, block)
	return RegisterEntry{}
}

func TestResolveProfileMergesBase(t *testing.T) {
	profile := ResolveProfile("206")

	if profile.FirmwareVersion() != "206" {
		t.Errorf("actual %v, expect 206", profile.FirmwareVersion())
	}
	// Base blocks survive the merge.
	if _, ok := profile.Block("sFirmware"); !ok {
		t.Error("sFirmware block missing")
	}
	// Firmware specific blocks are added.
	if _, ok := profile.Block("sHistory"); !ok {
		t.Error("sHistory block missing")
	}
	block, ok := profile.Block("sGlobal")
	if !ok {
		t.Fatal("sGlobal block missing")
	}
	if !bytes.Equal(block.Command, []byte{0xFB}) {
		t.Errorf("actual % x, expect fb", block.Command)
	}
}

func TestResolveProfileReplaceAndAppend(t *testing.T) {
	profile := ResolveProfile("206")

	// Overridden by name: the 206 table moves outsideTemp to offset 6.
	outside := findEntry(t, profile, "sGlobal", "outsideTemp")
	if outside.Offset != 6 {
		t.Errorf("actual %v, expect 6", outside.Offset)
	}
	// Untouched base entries keep their offsets.
	collector := findEntry(t, profile, "sGlobal", "collectorTemp")
	if collector.Offset != 2 {
		t.Errorf("actual %v, expect 2", collector.Offset)
	}
	// Appended entries show up exactly once.
	count := 0
	for _, entry := range profile.EntriesForBlock("sGlobal") {
		if entry.Name == "outsideTemp" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("actual %v outsideTemp entries, expect 1", count)
	}
	findEntry(t, profile, "sGlobal", "integralHeat")
}

func TestResolveProfileWriteWholeKeyReplace(t *testing.T) {
	profile := ResolveProfile("214")

	// The 214 table replaces the whole operating mode definition.
	mode, ok := profile.Parameter("p99OperatingMode")
	if !ok {
		t.Fatal("p99OperatingMode missing")
	}
	found := false
	for _, option := range mode.Options {
		if option == "auto" {
			found = true
		}
	}
	if !found {
		t.Errorf("actual %v, expect auto option", mode.Options)
	}
	// Parameters only the earlier table defines stay visible.
	room, ok := profile.Parameter("p01RoomTempDay")
	if !ok {
		t.Fatal("p01RoomTempDay missing")
	}
	if room.Step != 0.5 {
		t.Errorf("actual %v, expect 0.5", room.Step)
	}
}

func TestResolveProfileTechnician(t *testing.T) {
	technician := ResolveProfile("539technician")
	if _, ok := technician.Parameter("pCompressorLockTime"); !ok {
		t.Error("technician parameter missing")
	}

	plain := ResolveProfile("439")
	if _, ok := plain.Parameter("pCompressorLockTime"); ok {
		t.Error("technician parameter leaked into plain profile")
	}
}

func TestResolveProfileTechnicianFallsBackToPlain(t *testing.T) {
	// The 2xx generation has no technician tables; the suffixed key must
	// resolve the plain firmware layout, not the default one.
	profile := ResolveProfile("214technician")

	if _, ok := profile.Block("sSol"); !ok {
		t.Error("sSol block missing")
	}
	if profile.AckDelay() != 5*time.Millisecond {
		t.Errorf("actual %v, expect 5ms", profile.AckDelay())
	}
}

func TestResolveProfileUnknownFirmware(t *testing.T) {
	profile := ResolveProfile("999")

	// The requested version is kept even when falling back.
	if profile.FirmwareVersion() != "999" {
		t.Errorf("actual %v, expect 999", profile.FirmwareVersion())
	}
	// Default resolves to the newest generation layout.
	if _, ok := profile.Block("sFanDiag"); !ok {
		t.Error("sFanDiag block missing")
	}
	if profile.AckDelay() != 0 {
		t.Errorf("actual %v, expect 0", profile.AckDelay())
	}
}

func TestResolveProfileAckDelay(t *testing.T) {
	if actual := ResolveProfile("206").AckDelay(); actual != 5*time.Millisecond {
		t.Errorf("actual %v, expect 5ms", actual)
	}
	if actual := ResolveProfile("439").AckDelay(); actual != 0 {
		t.Errorf("actual %v, expect 0", actual)
	}
}

func TestResolveProfileParsesDecoders(t *testing.T) {
	profile := ResolveProfile("439")

	outside := findEntry(t, profile, "sGlobal", "outsideTemp")
	if outside.Decoder != (Decoder{Kind: DecodeSigned, Factor: 10}) {
		t.Errorf("actual %+v, expect signed factor 10", outside.Decoder)
	}
	valve := findEntry(t, profile, "sGlobal", "heatPipeValve")
	if valve.Decoder != (Decoder{Kind: DecodeBit, Bit: 0}) {
		t.Errorf("actual %+v, expect bit 0", valve.Decoder)
	}
	energy := findEntry(t, profile, "sGlobal", "heatRecoveredDay")
	if energy.Decoder.Kind != DecodeFloat {
		t.Errorf("actual %+v, expect float", energy.Decoder)
	}
}

func TestAllReadBlocksSorted(t *testing.T) {
	blocks := ResolveProfile("539technician").AllReadBlocks()
	if len(blocks) == 0 {
		t.Fatal("no blocks resolved")
	}
	if !sort.StringsAreSorted(blocks) {
		t.Errorf("actual %v, expect sorted", blocks)
	}
}

func TestParameterCommandBytes(t *testing.T) {
	profile := ResolveProfile("439")
	param, ok := profile.Parameter("p75VentilationRate")
	if !ok {
		t.Fatal("p75VentilationRate missing")
	}
	if !bytes.Equal(param.Command, []byte{0x0B, 0x05, 0x9C}) {
		t.Errorf("actual % x, expect 0b 05 9c", param.Command)
	}
	if param.Max != 3 {
		t.Errorf("actual %v, expect 3", param.Max)
	}
}
