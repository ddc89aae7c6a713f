package assembler

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/wav2instrument/pkg/host"
)

const ticksPerQuarter = 480

// TriggerSMF renders the aggregate trigger sequence as a Standard MIDI
// File: one note per sample at the sample's original timeline position.
func TriggerSMF(items []host.Item, pitches []int, bpm float64) ([]byte, error) {
	if len(items) == 0 {
		return nil, errors.New("no items to trigger")
	}
	if len(items) != len(pitches) {
		return nil, fmt.Errorf("items/pitches length mismatch: %d vs %d", len(items), len(pitches))
	}
	if bpm <= 0 {
		bpm = 120
	}

	type event struct {
		tick uint32
		off  bool // note-offs sort before note-ons at the same tick
		msg  midi.Message
	}

	secToTick := func(sec float64) uint32 {
		if sec < 0 {
			sec = 0
		}
		return uint32(sec * bpm / 60.0 * ticksPerQuarter)
	}

	channel := uint8(0)
	events := make([]event, 0, len(items)*2)
	for i, item := range items {
		pitch := uint8(pitches[i])
		on := secToTick(item.Position())
		off := secToTick(item.Position() + item.Length())
		if off <= on {
			off = on + 1
		}
		events = append(events, event{tick: on, msg: midi.NoteOn(channel, pitch, triggerVelocity)})
		events = append(events, event{tick: off, off: true, msg: midi.NoteOff(channel, pitch)})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var track smf.Track

	// Tempo meta event (FF 51 03, microseconds per beat)
	microsecondsPerBeat := uint32(60000000.0 / bpm)
	track.Add(0, smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(microsecondsPerBeat >> 16),
		byte(microsecondsPerBeat >> 8),
		byte(microsecondsPerBeat),
	}))

	// 4/4 time signature
	track.Add(0, smf.Message([]byte{0xFF, 0x58, 0x04, 0x04, 0x02, 0x18, 0x08}))

	var currentTick uint32
	for _, ev := range events {
		track.Add(ev.tick-currentTick, ev.msg)
		currentTick = ev.tick
	}

	track.Close(0)
	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}
