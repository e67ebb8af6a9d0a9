// Command hostsim exercises the motor driver and the motorctl service on a
// host build: a FakeSink stands in for the RP2040 PWM slices and every
// commanded level pair is printed.
//
//	go run ./cmd/hostsim
package main

import (
	"context"
	"fmt"
	"time"

	"picomotor/bus"
	"picomotor/motor"
	"picomotor/services/motorctl"
	"picomotor/types"
)

func main() {
	sink := motor.NewFakeSink()
	m := motor.New(sink, motor.Config{Deadzone: 0.05})
	if err := m.Init(); err != nil {
		fmt.Println("init failed:", err)
		return
	}
	m.Enable()

	b := bus.NewBus(16)
	svc := motorctl.New(b.NewConnection("motorctl"), m, motorctl.Config{ID: "m0"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	ui := b.NewConnection("ui")
	values := ui.Subscribe(bus.T("motor", "m0", "value"))

	// Drain the startup snapshot so each command below reads its own value.
	select {
	case <-values.Channel():
	case <-time.After(time.Second):
	}

	send := func(op string, payload any) {
		ui.Publish(&bus.Message{Topic: bus.T("motor", "m0", "control", op), Payload: payload})
		select {
		case msg := <-values.Channel():
			v := msg.Payload.(types.MotorValue)
			fmt.Printf("%-14s duty=%+.3f  levels=(%d,%d)  wrap=%d\n",
				op, v.Duty, sink.Level(motor.Positive), sink.Level(motor.Negative), sink.Wrap())
		case <-time.After(time.Second):
			fmt.Println(op, "timed out")
		}
	}

	fmt.Println("== picomotor host simulation ==")
	send("set_speed", types.MotorSpeedSet{Speed: 0.3})
	send("set_decay_mode", types.MotorDecaySet{Mode: types.DecayFast})
	send("set_frequency", types.MotorFrequencySet{Hz: 20000})
	send("set_frequency", types.MotorFrequencySet{Hz: 50000})
	send("full_negative", nil)
	send("stop", nil)
	send("coast", nil)
}
