// Package racktest provides rack documents and in-memory collaborators for
// tests of the analysis and batch packages.
package racktest

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/workflow"
)

// NestedRack is a three-chain rack: two top-level chains, the second
// holding a nested rack with one chain of two devices.
const NestedRack = `<?xml version="1.0" encoding="UTF-8"?>
<Ableton MajorVersion="5" MinorVersion="12.0_12049">
	<GroupDevicePreset>
		<Name Value="Parallel Space" />
		<Device><AudioEffectGroupDevice /></Device>
		<BranchPresets>
			<AudioEffectBranchPreset>
				<Name Value="Dry" />
				<DevicePresets />
			</AudioEffectBranchPreset>
			<AudioEffectBranchPreset>
				<Name Value="Wet" />
				<DevicePresets>
					<GroupDevicePreset>
						<Device><AudioEffectGroupDevice /></Device>
						<BranchPresets>
							<AudioEffectBranchPreset>
								<Name Value="Verb" />
								<DevicePresets>
									<AudioEffectPreset><Device><Reverb /></Device></AudioEffectPreset>
									<AudioEffectPreset><Device><Eq8 /></Device></AudioEffectPreset>
								</DevicePresets>
							</AudioEffectBranchPreset>
						</BranchPresets>
					</GroupDevicePreset>
				</DevicePresets>
			</AudioEffectBranchPreset>
		</BranchPresets>
	</GroupDevicePreset>
</Ableton>`

// FlatRack is a single-level rack with one chain holding one device.
const FlatRack = `<Ableton MajorVersion="5" MinorVersion="11.3">
	<GroupDevicePreset>
		<Name Value="Glue" />
		<Device><AudioEffectGroupDevice /></Device>
		<BranchPresets>
			<AudioEffectBranchPreset>
				<DevicePresets>
					<AudioEffectPreset><Device><GlueCompressor /></Device></AudioEffectPreset>
				</DevicePresets>
			</AudioEffectBranchPreset>
		</BranchPresets>
	</GroupDevicePreset>
</Ableton>`

// Corrupt is not a device-group document in any container.
var Corrupt = []byte("PK\x03\x04 not a rack")

// Gzip compresses s the way device-group documents are stored.
func Gzip(s string) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(s))
	zw.Close()
	return buf.Bytes()
}

// Source is an in-memory workflow.Source.
type Source struct {
	mu   sync.Mutex
	docs map[uuid.UUID][]byte
	// Gate, when set, is received from before every Open returns, letting
	// tests hold analyses in flight.
	Gate chan struct{}
}

// NewSource creates an empty Source.
func NewSource() *Source {
	return &Source{docs: make(map[uuid.UUID][]byte)}
}

// Put stores data under a new rack id and returns the id.
func (s *Source) Put(data []byte) uuid.UUID {
	id := uuid.New()
	s.Set(id, data)
	return id
}

// Set stores data under id.
func (s *Source) Set(id uuid.UUID, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = data
}

func (s *Source) Open(ctx context.Context, rackID uuid.UUID) (io.ReadCloser, error) {
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	data, ok := s.docs[rackID]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrNotFound, rackID)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
