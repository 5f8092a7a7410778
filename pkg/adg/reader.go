// Package adg reads device-group documents (.adg, .adv, .als) into a
// generic element tree. Documents are gzip-compressed XML; plain XML is
// accepted for fixtures and exported presets.
//
// The reader never recurses: elements are appended to an arena while an
// explicit stack tracks open elements, and the depth limit is enforced
// when an element is pushed.
package adg

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const rootElement = "Ableton"

var errSizeLimit = errors.New("decompressed size limit reached")

// Read parses a complete document held in memory.
func Read(data []byte, limits Limits) (*Tree, error) {
	return ReadFrom(bytes.NewReader(data), limits)
}

// ReadFrom parses a document from r. The container (gzip or plain XML) is
// detected from the leading bytes.
func ReadFrom(r io.Reader, limits Limits) (*Tree, error) {
	limits = limits.resolve()
	br := bufio.NewReader(r)

	src, closer, err := open(br)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	capped := &cappedReader{r: src, remaining: limits.MaxBytes}
	return decode(capped, limits)
}

func open(br *bufio.Reader) (io.Reader, io.Closer, error) {
	head, err := br.Peek(2)
	if len(head) == 0 {
		return nil, nil, parseErr(KindTruncated, 0, "empty document", err)
	}

	if len(head) == 2 && head[0] == 0x1f && head[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, nil, parseErr(KindTruncated, 0, "gzip header incomplete", err)
			}
			return nil, nil, parseErr(KindContainer, 0, "invalid gzip header", err)
		}
		return zr, zr, nil
	}

	if looksLikeXML(br) {
		return br, nil, nil
	}

	return nil, nil, parseErr(KindContainer, 0, "not a gzip or XML document", nil)
}

func looksLikeXML(br *bufio.Reader) bool {
	head, _ := br.Peek(512)
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	head = bytes.TrimLeft(head, " \t\r\n")
	return len(head) > 0 && head[0] == '<'
}

func decode(r io.Reader, limits Limits) (*Tree, error) {
	dec := xml.NewDecoder(r)
	t := &Tree{nodes: make([]Node, 0, 256)}
	stack := make([]int, 0, 64)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, classify(err, dec.InputOffset())
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth := len(stack)
			if depth >= limits.MaxDepth {
				return nil, &DepthError{
					Depth: depth + 1,
					Limit: limits.MaxDepth,
					Path:  t.Path(stack[depth-1]),
				}
			}
			if len(t.nodes) >= limits.MaxNodes {
				return nil, parseErr(
					KindLimit, dec.InputOffset(),
					fmt.Sprintf("element count exceeds %d", limits.MaxNodes), nil,
				)
			}
			if depth == 0 && len(t.nodes) > 0 {
				return nil, parseErr(KindStructure, dec.InputOffset(), "multiple root elements", nil)
			}

			parent := -1
			if depth > 0 {
				parent = stack[depth-1]
			}

			idx := len(t.nodes)
			t.nodes = append(t.nodes, Node{
				Name:   el.Name.Local,
				Attrs:  copyAttrs(el.Attr),
				Parent: parent,
				Depth:  depth,
			})
			if parent >= 0 {
				t.nodes[parent].Children = append(t.nodes[parent].Children, idx)
			}
			stack = append(stack, idx)

		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) > 0 {
		return nil, parseErr(KindTruncated, dec.InputOffset(), "document ends inside an element", nil)
	}
	if len(t.nodes) == 0 {
		return nil, parseErr(KindStructure, 0, "no root element", nil)
	}

	if err := t.checkRoot(limits); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) checkRoot(limits Limits) error {
	root := &t.nodes[0]
	if root.Name != rootElement {
		return parseErr(KindStructure, 0, fmt.Sprintf("root element %q, want %q", root.Name, rootElement), nil)
	}

	t.MajorVersion, _ = t.Attr(0, "MajorVersion")
	t.MinorVersion, _ = t.Attr(0, "MinorVersion")
	t.Creator, _ = t.Attr(0, "Creator")

	if !limits.supports(t.MajorVersion) {
		return parseErr(KindVersion, 0, fmt.Sprintf("unsupported MajorVersion %q", t.MajorVersion), nil)
	}
	return nil
}

func classify(err error, offset int64) error {
	if errors.Is(err, errSizeLimit) {
		return parseErr(KindLimit, offset, "decompressed document too large", nil)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return parseErr(KindTruncated, offset, "stream ended unexpectedly", err)
	}
	if errors.Is(err, gzip.ErrChecksum) || errors.Is(err, gzip.ErrHeader) {
		return parseErr(KindContainer, offset, "corrupt gzip stream", err)
	}

	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		if strings.Contains(syn.Msg, "unexpected EOF") {
			return parseErr(KindTruncated, offset, "document ends inside an element", err)
		}
		return parseErr(KindSyntax, offset, "malformed XML", err)
	}

	return parseErr(KindSyntax, offset, "read failed", err)
}

func copyAttrs(attrs []xml.Attr) []Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]Attr, len(attrs))
	for i, a := range attrs {
		out[i] = Attr{Name: a.Name.Local, Value: a.Value}
	}
	return out
}

// cappedReader fails with errSizeLimit once more than remaining bytes
// would be produced, distinguishing an oversized stream from a clean EOF.
type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.remaining <= 0 {
		var extra [1]byte
		n, err := c.r.Read(extra[:])
		if n > 0 {
			return 0, errSizeLimit
		}
		return 0, err
	}

	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	return n, err
}
