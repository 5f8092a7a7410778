package chains

// Rack device element names.
const (
	AudioEffectRack = "AudioEffectGroupDevice"
	InstrumentRack  = "InstrumentGroupDevice"
	MidiEffectRack  = "MidiEffectGroupDevice"
	DrumRack        = "DrumGroupDevice"
)

// Chain list element names.
const (
	branchList = "BranchPresets"
	returnList = "ReturnBranchPresets"
)

// branchTypes lists the chain element names accepted inside the
// BranchPresets of each rack type.
var branchTypes = map[string][]string{
	AudioEffectRack: {"AudioEffectBranchPreset"},
	InstrumentRack:  {"InstrumentBranchPreset"},
	MidiEffectRack:  {"MidiEffectBranchPreset"},
	DrumRack:        {"DrumBranchPreset", "InstrumentBranchPreset"},
}

// IsRack reports whether deviceType is a known rack device.
func IsRack(deviceType string) bool {
	_, ok := branchTypes[deviceType]
	return ok
}

func acceptsBranch(rackType, branch string) bool {
	for _, name := range branchTypes[rackType] {
		if name == branch {
			return true
		}
	}
	return false
}

// StandardName returns the display name of a device element type and
// whether the type is a known built-in device. Unknown types return the
// element name unchanged.
func StandardName(deviceType string) (string, bool) {
	if name, ok := standardNames[deviceType]; ok {
		return name, true
	}
	return deviceType, false
}

var standardNames = map[string]string{
	// audio effects
	"AlignDelay":             "Align Delay",
	"Amp":                    "Amp",
	"AudioEffectGroupDevice": "Audio Effect Rack",
	"AutoFilter":             "Auto Filter",
	"AutoPan":                "Auto Pan",
	"AutoShift":              "Auto Shift",
	"BeatRepeat":             "Beat Repeat",
	"Cabinet":                "Cabinet",
	"ChannelEq":              "Channel EQ",
	"Chorus":                 "Chorus-Ensemble",
	"ChromaticChorus":        "Chorus-Ensemble",
	"ChorusEnsemble":         "Chorus-Ensemble",
	"Compressor2":            "Compressor",
	"Compressor":             "Compressor",
	"Corpus":                 "Corpus",
	"Delay":                  "Delay",
	"DrumBuss":               "Drum Buss",
	"DynamicTube":            "Dynamic Tube",
	"Tube":                   "Dynamic Tube",
	"Echo":                   "Echo",
	"EnvelopeFollower":       "Envelope Follower",
	"FilterEQ3":              "EQ Three",
	"Eq3":                    "EQ Three",
	"EQThree":                "EQ Three",
	"Eq8":                    "EQ Eight",
	"EQEight":                "EQ Eight",
	"Erosion":                "Erosion",
	"ExternalAudioEffect":    "External Audio Effect",
	"FilterDelay":            "Filter Delay",
	"Gate":                   "Gate",
	"GlueCompressor":         "Glue Compressor",
	"GrainDelay":             "Grain Delay",
	"HybridReverb":           "Hybrid Reverb",
	"LFO":                    "LFO",
	"Limiter":                "Limiter",
	"Looper":                 "Looper",
	"MultibandDynamics":      "Multiband Dynamics",
	"MultibandCompressor":    "Multiband Dynamics",
	"Overdrive":              "Overdrive",
	"Pedal":                  "Pedal",
	"Phaser":                 "Phaser",
	"PhaserFlanger":          "Phaser-Flanger",
	"Flanger":                "Flanger",
	"PhaserNew":              "Phaser-Flanger",
	"Redux":                  "Redux",
	"Resonators":             "Resonators",
	"Reverb":                 "Reverb",
	"Roar":                   "Roar",
	"Saturator":              "Saturator",
	"Shaper":                 "Shaper",
	"Shifter":                "Shifter",
	"FrequencyShifter":       "Frequency Shifter",
	"Frequency":              "Frequency Shifter",
	"SpectralResonator":      "Spectral Resonator",
	"SpectralTime":           "Spectral Time",
	"Spectrum":               "Spectrum",
	"Tuner":                  "Tuner",
	"Utility":                "Utility",
	"VinylDistortion":        "Vinyl Distortion",
	"Vocoder":                "Vocoder",

	// instruments
	"AnalogDevice":          "Analog",
	"Analog":                "Analog",
	"Collision":             "Collision",
	"DrumRack":              "Drum Rack",
	"InstrumentRack":        "Instrument Rack",
	"Electric":              "Electric",
	"ExternalInstrument":    "External Instrument",
	"GranulatorIII":         "Granulator III",
	"Granulator":            "Granulator III",
	"InstrumentImpulse":     "Impulse",
	"Impulse":               "Impulse",
	"Meld":                  "Meld",
	"Operator":              "Operator",
	"Poli":                  "Poli",
	"Sampler":               "Sampler",
	"Simpler":               "Simpler",
	"Tension":               "Tension",
	"Wavetable":             "Wavetable",
	"Bass":                  "Bass",
	"Drift":                 "Drift",
	"DrumSampler":           "Drum Sampler",
	"InstrumentGroupDevice": "Instrument Rack",
	"MidiEffectGroupDevice": "MIDI Effect Rack",
	"DrumGroupDevice":       "Drum Rack",

	// midi effects
	"Arpeggiator": "Arpeggiator",
	"Arpeggiate":  "Arpeggiator",
	"CCControl":   "CC Control",
	"Chord":       "Chord",
	"NoteEcho":    "Note Echo",
	"NoteLength":  "Note Length",
	"Pitch":       "Pitch",
	"Random":      "Random",
	"Scale":       "Scale",
	"Velocity":    "Velocity",
}
