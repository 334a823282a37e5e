package query

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"serverbrowser-go/internal/gamelist"
)

// Packet types on the discovery wire.
const (
	packetClientFindServer uint8 = 0
	packetServerResponse   uint8 = 1
)

// maxPacketSize bounds a single discovery datagram.
const maxPacketSize = 1400

var errPacketTooShort = errors.New("packet too short")

// serverResponse is the decoded payload of a status response.
type serverResponse struct {
	Name       string
	Revision   string
	ClientsOn  uint8
	ClientsMax uint8
	// Content carries (ident, reported name) pairs. The names are learned
	// into the unknown-content cache; they never touch descriptor
	// resolution fields directly.
	Content []contentRef
}

type contentRef struct {
	Ident gamelist.ContentIdent
	Name  string
}

// encodeFindServer builds a find-server probe datagram.
func encodeFindServer() []byte {
	return []byte{packetClientFindServer}
}

// encodeResponse builds a status response datagram. Used by game servers
// and by tests; the browser itself only decodes responses.
func encodeResponse(resp *serverResponse) ([]byte, error) {
	if len(resp.Content) > 255 {
		return nil, fmt.Errorf("too many content entries: %d", len(resp.Content))
	}

	var buf bytes.Buffer
	buf.WriteByte(packetServerResponse)
	writeString(&buf, resp.Name)
	writeString(&buf, resp.Revision)
	buf.WriteByte(resp.ClientsOn)
	buf.WriteByte(resp.ClientsMax)
	buf.WriteByte(uint8(len(resp.Content)))
	for _, c := range resp.Content {
		if err := binary.Write(&buf, binary.LittleEndian, c.Ident.ID); err != nil {
			return nil, err
		}
		buf.Write(c.Ident.MD5[:])
		writeString(&buf, c.Name)
	}

	if buf.Len() > maxPacketSize {
		return nil, fmt.Errorf("response exceeds %d bytes", maxPacketSize)
	}
	return buf.Bytes(), nil
}

// decodeResponse parses a status response datagram.
func decodeResponse(data []byte) (*serverResponse, error) {
	if len(data) < 1 || data[0] != packetServerResponse {
		return nil, fmt.Errorf("not a server response packet")
	}
	r := bytes.NewReader(data[1:])

	resp := &serverResponse{}
	var err error
	if resp.Name, err = readString(r); err != nil {
		return nil, err
	}
	if resp.Revision, err = readString(r); err != nil {
		return nil, err
	}
	if resp.ClientsOn, err = r.ReadByte(); err != nil {
		return nil, errPacketTooShort
	}
	if resp.ClientsMax, err = r.ReadByte(); err != nil {
		return nil, errPacketTooShort
	}

	count, err := r.ReadByte()
	if err != nil {
		return nil, errPacketTooShort
	}
	for i := 0; i < int(count); i++ {
		var ref contentRef
		if err := binary.Read(r, binary.LittleEndian, &ref.Ident.ID); err != nil {
			return nil, errPacketTooShort
		}
		if _, err := io.ReadFull(r, ref.Ident.MD5[:]); err != nil {
			return nil, errPacketTooShort
		}
		if ref.Name, err = readString(r); err != nil {
			return nil, err
		}
		resp.Content = append(resp.Content, ref)
	}
	return resp, nil
}

// writeString appends a zero-terminated string.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
}

// readString reads a zero-terminated string.
func readString(r *bytes.Reader) (string, error) {
	var out []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", errPacketTooShort
		}
		if b == 0 {
			return string(out), nil
		}
		out = append(out, b)
	}
}
