package query

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"serverbrowser-go/internal/events"
	"serverbrowser-go/internal/gamelist"
)

func TestPacket_ResponseRoundTrip(t *testing.T) {
	in := &serverResponse{
		Name:       "Steelworks Valley",
		Revision:   "14.1",
		ClientsOn:  3,
		ClientsMax: 25,
		Content: []contentRef{
			{Ident: gamelist.ContentIdent{ID: 5, MD5: [16]byte{0xde, 0xad}}, Name: "Total Town Set"},
			{Ident: gamelist.ContentIdent{ID: 9, MD5: [16]byte{9}}},
		},
	}

	data, err := encodeResponse(in)
	require.NoError(t, err)

	out, err := decodeResponse(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeResponse_Malformed(t *testing.T) {
	_, err := decodeResponse(nil)
	assert.Error(t, err)

	_, err = decodeResponse([]byte{packetClientFindServer})
	assert.Error(t, err)

	// Truncated mid-string.
	_, err = decodeResponse([]byte{packetServerResponse, 'a', 'b'})
	assert.Error(t, err)
}

type recordingLearner struct {
	names map[gamelist.ContentIdent]string
}

func (r *recordingLearner) LearnName(ident gamelist.ContentIdent, name string) {
	r.names[ident] = name
}

func TestClient_QueryServerLoopback(t *testing.T) {
	bus := events.NewBus()
	list := gamelist.NewList(gamelist.NewDefaultResolver(gamelist.DefaultPort), bus, zap.NewNop())
	learner := &recordingLearner{names: make(map[gamelist.ContentIdent]string)}

	// Fake game server: answers one find-server probe with a response.
	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer serverConn.Close()

	ident := gamelist.ContentIdent{ID: 5, MD5: [16]byte{0xaa}}
	go func() {
		buf := make([]byte, maxPacketSize)
		n, remote, err := serverConn.ReadFromUDP(buf)
		if err != nil || n < 1 || buf[0] != packetClientFindServer {
			return
		}
		data, err := encodeResponse(&serverResponse{
			Name:       "Steelworks Valley",
			Revision:   "14.1",
			ClientsOn:  3,
			ClientsMax: 25,
			Content:    []contentRef{{Ident: ident, Name: "Total Town Set"}},
		})
		if err != nil {
			return
		}
		_, _ = serverConn.WriteToUDP(data, remote)
	}()

	client, err := NewClient(list, learner, "14.1", gamelist.DefaultPort, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	client.QueryServer(serverConn.LocalAddr().String())

	// The response lands in the pending queue; drain happens on the owning
	// goroutine, here simulated by the test.
	sched := gamelist.NewScheduler(list, client, gamelist.DefaultSchedulerConfig(), zap.NewNop())
	require.Eventually(t, func() bool {
		sched.OnTick()
		return list.Len() > 0
	}, 3*time.Second, 10*time.Millisecond)

	entry := list.Get(serverConn.LocalAddr().String())
	require.NotNil(t, entry)
	assert.True(t, entry.Info.Online)
	assert.Equal(t, "Steelworks Valley", entry.Info.Name)
	assert.True(t, entry.Info.VersionCompatible)
	require.Len(t, entry.Info.Content, 1)
	assert.Equal(t, ident, entry.Info.Content[0].Ident)
	assert.Empty(t, entry.Info.Content[0].Name, "wire path must not set resolution fields")
	assert.Equal(t, "Total Town Set", learner.names[ident])
}
