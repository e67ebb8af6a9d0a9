//go:build rp2040

// Command pico-demo: motor bring-up for RP2040/Pico with a UART speed
// console and optional INA219 current telemetry.
//
// Build/flash (TinyGo):
//
//	tinygo flash -target pico ./cmd/pico-demo
//
// Wiring assumptions (edit below as needed):
// - H-bridge positive/negative inputs on GP6/GP7 (one PWM slice).
// - UART0 console at 115200 on the Pico default pins.
// - INA219 on I2C0 (SDA=GP4, SCL=GP5), address 0x40, 0.1 Ω shunt.
//
// Console commands, one per line:
//
//	s <speed>   set speed (-1..1)
//	p <pct>     set speed from percent (0..100 onto -1..1)
//	f <hz>      set PWM frequency
//	d slow|fast set decay mode
//	r <speed>   ramp to speed over 2s
//	stop | coast | enable | disable
package main

import (
	"context"
	"machine"
	"strconv"
	"strings"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"picomotor/bus"
	"picomotor/drivers/ina219"
	"picomotor/motor"
	"picomotor/services/motorctl"
	"picomotor/types"
)

func main() {
	time.Sleep(3 * time.Second)
	println("== picomotor: Pico demo ==")

	sink, err := motor.NewMachineSink(motor.PinPair{Positive: machine.GP6, Negative: machine.GP7})
	if err != nil {
		println("pin claim failed:", err.Error())
		return
	}
	m := motor.New(sink, motor.Config{Deadzone: 0.05})
	if err := m.Init(); err != nil {
		println("init failed:", err.Error())
		return
	}
	m.Enable()

	// Current monitor (optional; commands still work if absent).
	machine.I2C0.Configure(machine.I2CConfig{Frequency: 400_000})
	mon := ina219.New(machine.I2C0, ina219.Config{RShunt_uOhm: 100_000})
	cfg := motorctl.Config{ID: "m0", OverlimitMilliAmps: 2000}
	if err := mon.Configure(ina219.Config{MaxCurrent: 3200}); err == nil {
		cfg.Monitor = mon
		cfg.SampleEvery = 500 * time.Millisecond
	} else {
		println("no current monitor:", err.Error())
	}

	b := bus.NewBus(16)
	svc := motorctl.New(b.NewConnection("motorctl"), m, cfg)
	ctx := context.Background()
	go svc.Run(ctx)

	ui := b.NewConnection("console")
	values := ui.Subscribe(bus.T("motor", "m0", "value"))
	currents := ui.Subscribe(bus.T("motor", "m0", "current"))
	go func() {
		for {
			select {
			case msg := <-values.Channel():
				if v, ok := msg.Payload.(types.MotorValue); ok {
					println("duty:", int(v.Duty*1000), "/1000 enabled:", v.Enabled)
				}
			case msg := <-currents.Channel():
				if c, ok := msg.Payload.(types.MotorCurrent); ok && c.Overlimit {
					println("OVERCURRENT:", c.MilliAmps, "mA — coasting")
				}
			}
		}
	}()

	uart := uartx.UART0
	_ = uart.Configure(uartx.UARTConfig{BaudRate: 115200})

	buf := make([]byte, 64)
	var line []byte
	for {
		n, err := uart.RecvSomeContext(ctx, buf)
		if err != nil {
			continue
		}
		for _, c := range buf[:n] {
			if c == '\r' || c == '\n' {
				if len(line) > 0 {
					dispatch(ui, string(line))
					line = line[:0]
				}
				continue
			}
			line = append(line, c)
		}
	}
}

func dispatch(conn *bus.Connection, line string) {
	send := func(op string, payload any) {
		conn.Publish(&bus.Message{Topic: bus.T("motor", "m0", "control", op), Payload: payload})
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "stop", "coast", "enable", "disable":
		send(fields[0], nil)
	case "s":
		if v, ok := parseFloat(fields); ok {
			send("set_speed", types.MotorSpeedSet{Speed: v})
		}
	case "p":
		if v, ok := parseFloat(fields); ok {
			send("to_percent", types.MotorPercentSet{Value: v, InMin: 0, InMax: 100})
		}
	case "f":
		if v, ok := parseFloat(fields); ok {
			send("set_frequency", types.MotorFrequencySet{Hz: v})
		}
	case "d":
		if len(fields) == 2 {
			send("set_decay_mode", types.MotorDecaySet{Mode: fields[1]})
		}
	case "r":
		if v, ok := parseFloat(fields); ok {
			send("ramp", types.MotorRampSet{To: v, DurationMs: 2000, Steps: 50})
		}
	default:
		println("unknown command:", fields[0])
	}
}

func parseFloat(fields []string) (float32, bool) {
	if len(fields) != 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[1], 32)
	if err != nil {
		println("bad number:", fields[1])
		return 0, false
	}
	return float32(v), true
}
