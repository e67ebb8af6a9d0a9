package ina219

import (
	"testing"

	"picomotor/errcode"
)

// fakeI2C records writes and serves register reads from a map.
type fakeI2C struct {
	regs   map[byte]uint16
	writes []struct {
		reg byte
		val uint16
	}
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	if len(w) == 3 && len(r) == 0 {
		f.writes = append(f.writes, struct {
			reg byte
			val uint16
		}{w[0], uint16(w[1])<<8 | uint16(w[2])})
		return nil
	}
	if len(w) == 1 && len(r) == 2 {
		v := f.regs[w[0]]
		r[0] = byte(v >> 8)
		r[1] = byte(v)
		return nil
	}
	return errcode.Unsupported
}

func TestConfigureWritesCalibration(t *testing.T) {
	bus := &fakeI2C{regs: map[byte]uint16{}}
	d := New(bus, Config{RShunt_uOhm: 100_000}) // 0.1 Ω
	if err := d.Configure(Config{MaxCurrent: 3200}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if len(bus.writes) != 2 {
		t.Fatalf("want config+calibration writes, got %+v", bus.writes)
	}
	if bus.writes[0].reg != regConfig || bus.writes[0].val != configDefault {
		t.Fatalf("config write = %+v", bus.writes[0])
	}
	// LSB = 3_200_000/32768 = 97 µA; CAL = 4.096e10/(97×100000) = 4222.
	if bus.writes[1].reg != regCalibration || bus.writes[1].val != 4222 {
		t.Fatalf("calibration write = %+v", bus.writes[1])
	}
}

func TestConfigureRejectsMissingShunt(t *testing.T) {
	d := New(&fakeI2C{regs: map[byte]uint16{}}, Config{})
	if err := d.Configure(Config{MaxCurrent: 1000}); err != errcode.InvalidParams {
		t.Fatalf("err = %v, want invalid_params", err)
	}
}

func TestTelemetryScaling(t *testing.T) {
	bus := &fakeI2C{regs: map[byte]uint16{}}
	d := New(bus, Config{RShunt_uOhm: 100_000})
	if err := d.Configure(Config{MaxCurrent: 3200}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	// Bus voltage: raw is left-shifted by 3, LSB 4 mV.
	bus.regs[regBus] = 3000 << 3
	if mv, err := d.BusMilliVolts(); err != nil || mv != 12000 {
		t.Fatalf("BusMilliVolts = %d, %v; want 12000", mv, err)
	}

	// Shunt voltage: signed, LSB 10 µV.
	shunt := int16(-250)
	bus.regs[regShunt] = uint16(shunt)
	if uv, err := d.ShuntMicroVolts(); err != nil || uv != -2500 {
		t.Fatalf("ShuntMicroVolts = %d, %v; want -2500", uv, err)
	}

	// Current: raw × LSB (97 µA from the calibration above).
	bus.regs[regCurrent] = 1000
	if ma, err := d.CurrentMilliAmps(); err != nil || ma != 97 {
		t.Fatalf("CurrentMilliAmps = %d, %v; want 97", ma, err)
	}
	raw := int16(-1000)
	bus.regs[regCurrent] = uint16(raw)
	if ma, err := d.CurrentMilliAmps(); err != nil || ma != -97 {
		t.Fatalf("negative CurrentMilliAmps = %d, %v; want -97", ma, err)
	}
}

func TestCurrentRequiresCalibration(t *testing.T) {
	d := New(&fakeI2C{regs: map[byte]uint16{}}, Config{RShunt_uOhm: 100_000})
	if _, err := d.CurrentMilliAmps(); err != errcode.NotReady {
		t.Fatalf("err = %v, want not_ready", err)
	}
}
