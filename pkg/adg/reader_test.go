package adg_test

import (
	"bytes"
	"compress/gzip"
	"errors"
	"strings"
	"testing"

	"github.com/JaimeStill/racksmith/pkg/adg"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<Ableton MajorVersion="5" MinorVersion="12.0_12049" Creator="Ableton Live 12.0">
	<GroupDevicePreset>
		<Name Value="Bus Glue" />
		<BranchPresets>
			<AudioEffectBranchPreset><Name Value="Left" /></AudioEffectBranchPreset>
			<AudioEffectBranchPreset><Name Value="Right" /></AudioEffectBranchPreset>
		</BranchPresets>
	</GroupDevicePreset>
</Ableton>`

func compress(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestReadGzipDocument(t *testing.T) {
	tree, err := adg.Read(compress(t, sampleXML), adg.Limits{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if tree.Name(tree.Root()) != "Ableton" {
		t.Errorf("root = %q, want Ableton", tree.Name(tree.Root()))
	}
	if got := tree.FormatVersion(); got != "5.12.0_12049" {
		t.Errorf("FormatVersion() = %q", got)
	}
	if tree.Creator != "Ableton Live 12.0" {
		t.Errorf("Creator = %q", tree.Creator)
	}

	preset := tree.Child(tree.Root(), "GroupDevicePreset")
	if preset < 0 {
		t.Fatal("GroupDevicePreset not found")
	}
	if name, ok := tree.Value(preset, "Name"); !ok || name != "Bus Glue" {
		t.Errorf("Value(Name) = %q, %v", name, ok)
	}

	list := tree.Descend(tree.Root(), "GroupDevicePreset", "BranchPresets")
	children := tree.Children(list)
	if len(children) != 2 {
		t.Fatalf("branch count = %d, want 2", len(children))
	}

	want := "/Ableton/GroupDevicePreset/BranchPresets/AudioEffectBranchPreset[1]"
	if got := tree.Path(children[1]); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
	if got := tree.Path(list); got != "/Ableton/GroupDevicePreset/BranchPresets" {
		t.Errorf("Path(list) = %q", got)
	}
}

func TestReadPlainXML(t *testing.T) {
	tree, err := adg.Read([]byte("\n  "+sampleXML), adg.Limits{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tree.Len() != 8 {
		t.Errorf("Len() = %d, want 8", tree.Len())
	}
}

func TestReadErrors(t *testing.T) {
	full := compress(t, sampleXML)

	tests := []struct {
		name   string
		data   []byte
		limits adg.Limits
		kind   string
	}{
		{"empty", nil, adg.Limits{}, adg.KindTruncated},
		{"binary", []byte{0x00, 0x01, 0x02, 0x03}, adg.Limits{}, adg.KindContainer},
		{"truncated gzip", full[:len(full)/2], adg.Limits{}, adg.KindTruncated},
		{"truncated xml", []byte(`<Ableton MajorVersion="5"><GroupDevicePreset>`), adg.Limits{}, adg.KindTruncated},
		{"malformed", []byte(`<Ableton MajorVersion="5"><a></b></Ableton>`), adg.Limits{}, adg.KindSyntax},
		{"wrong root", []byte(`<Preset MajorVersion="5"/>`), adg.Limits{}, adg.KindStructure},
		{"unsupported version", []byte(`<Ableton MajorVersion="3"/>`), adg.Limits{}, adg.KindVersion},
		{"missing version", []byte(`<Ableton/>`), adg.Limits{}, adg.KindVersion},
		{"size limit", full, adg.Limits{MaxBytes: 64}, adg.KindLimit},
		{"node limit", full, adg.Limits{MaxNodes: 3}, adg.KindLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adg.Read(tt.data, tt.limits)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, adg.ErrParse) {
				t.Errorf("error %v does not match ErrParse", err)
			}

			var pe *adg.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *ParseError", err)
			}
			if pe.Kind != tt.kind {
				t.Errorf("kind = %q, want %q (%v)", pe.Kind, tt.kind, err)
			}
		})
	}
}

func TestReadDepthExceeded(t *testing.T) {
	doc := `<Ableton MajorVersion="5"><a><b><c/></b></a></Ableton>`

	_, err := adg.Read([]byte(doc), adg.Limits{MaxDepth: 3})
	if !errors.Is(err, adg.ErrDepthExceeded) {
		t.Fatalf("error = %v, want ErrDepthExceeded", err)
	}
	if !errors.Is(err, adg.ErrParse) {
		t.Error("DepthError should be parse-class")
	}

	var de *adg.DepthError
	if !errors.As(err, &de) {
		t.Fatalf("error %T is not *DepthError", err)
	}
	if de.Limit != 3 || de.Depth != 4 {
		t.Errorf("DepthError = %+v", de)
	}
	if de.Path != "/Ableton/a/b" {
		t.Errorf("Path = %q", de.Path)
	}

	if _, err := adg.Read([]byte(doc), adg.Limits{MaxDepth: 4}); err != nil {
		t.Errorf("depth 4 should pass: %v", err)
	}
}

func TestReadDeepNestingIsIterative(t *testing.T) {
	const levels = 50_000

	var b strings.Builder
	b.WriteString(`<Ableton MajorVersion="5">`)
	for range levels {
		b.WriteString("<n>")
	}
	for range levels {
		b.WriteString("</n>")
	}
	b.WriteString(`</Ableton>`)

	tree, err := adg.Read(compress(t, b.String()), adg.Limits{MaxDepth: levels + 1})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tree.Len() != levels+1 {
		t.Errorf("Len() = %d, want %d", tree.Len(), levels+1)
	}
	if d := tree.Node(tree.Len() - 1).Depth; d != levels {
		t.Errorf("deepest depth = %d, want %d", d, levels)
	}

	_, err = adg.Read(compress(t, b.String()), adg.Limits{})
	if !errors.Is(err, adg.ErrDepthExceeded) {
		t.Errorf("default limit should reject %d levels, got %v", levels, err)
	}
}
