package motor

// FakeSink implements PWMSink in memory for host-side tests and simulation.
// It records every write together with the wrap in force at write time, so
// tests can check that no reconfiguration sequence ever leaves a compare
// level above the active wrap.
type FakeSink struct {
	// ConfigureErr, when set, is returned by the next Configure call
	// without touching the recorded settings.
	ConfigureErr error

	wrap    uint16
	div16   uint16
	level   [2]uint16
	writes  []FakeWrite
	configs int
	closed  bool
}

// FakeWrite is one recorded SetLevel, stamped with the wrap active when the
// write happened.
type FakeWrite struct {
	Ch    Channel
	Level uint16
	Wrap  uint16
}

func NewFakeSink() *FakeSink { return &FakeSink{} }

func (f *FakeSink) Configure(wrap uint16, div16 uint16) error {
	if f.ConfigureErr != nil {
		err := f.ConfigureErr
		f.ConfigureErr = nil
		return err
	}
	f.wrap = wrap
	f.div16 = div16
	f.configs++
	return nil
}

func (f *FakeSink) SetLevel(ch Channel, level uint16) {
	f.level[ch] = level
	f.writes = append(f.writes, FakeWrite{Ch: ch, Level: level, Wrap: f.wrap})
}

func (f *FakeSink) Close() error {
	f.closed = true
	return nil
}

// Level returns the last level written to a channel.
func (f *FakeSink) Level(ch Channel) uint16 { return f.level[ch] }

// Wrap and Div16 return the active slice configuration.
func (f *FakeSink) Wrap() uint16  { return f.wrap }
func (f *FakeSink) Div16() uint16 { return f.div16 }

// Writes returns the ordered write history since the last Reset.
func (f *FakeSink) Writes() []FakeWrite { return f.writes }

// Configures counts Configure calls since the last Reset.
func (f *FakeSink) Configures() int { return f.configs }

func (f *FakeSink) Closed() bool { return f.closed }

// Reset clears the write history but keeps the current configuration.
func (f *FakeSink) Reset() {
	f.writes = nil
	f.configs = 0
}
