package sink

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSink drives a single blocking output stream, matching the
// teacher's blocking-I/O stream style (portaudio.OpenStream + Write) used
// for its playback loop — generalized here from a fixed mono voice stream
// to a configurable-channel-count output device.
type PortAudioSink struct {
	deviceIndex int // -1 selects the default output device
	stream      *portaudio.Stream
	interleaved []float32
	channels    int
}

// NewPortAudio constructs a sink bound to deviceIndex (-1 for default).
func NewPortAudio(deviceIndex int) *PortAudioSink {
	return &PortAudioSink{deviceIndex: deviceIndex}
}

func (s *PortAudioSink) Prepare(sampleRate float64, blockSize, channels int) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	dev, err := resolveDevice(devices, s.deviceIndex)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}

	s.channels = channels
	s.interleaved = make([]float32, blockSize*channels)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: blockSize,
	}
	stream, err := portaudio.OpenStream(params, s.interleaved)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	s.stream = stream
	return nil
}

func (s *PortAudioSink) Pull(block [][]float32) error {
	if s.stream == nil {
		return ErrDevice
	}
	n := 0
	if len(block) > 0 {
		n = len(block[0])
	}
	for i := 0; i < n; i++ {
		for c := 0; c < s.channels; c++ {
			if c < len(block) {
				s.interleaved[i*s.channels+c] = block[c][i]
			} else {
				s.interleaved[i*s.channels+c] = 0
			}
		}
	}
	return s.stream.Write()
}

func (s *PortAudioSink) Close() error {
	if s.stream == nil {
		return nil
	}
	s.stream.Stop()
	err := s.stream.Close()
	portaudio.Terminate()
	return err
}

func resolveDevice(devices []*portaudio.DeviceInfo, idx int) (*portaudio.DeviceInfo, error) {
	if idx >= 0 && idx < len(devices) {
		return devices[idx], nil
	}
	return portaudio.DefaultOutputDevice()
}
