package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perr "teambot/internal/platform/errors"
	"teambot/internal/services/support/domain"
)

type fakeHosting struct {
	names      []string
	details    map[string]domain.ServerDetail
	blocks     map[string][]string
	detailErrs map[string]error
	blockErrs  map[string]error
}

func (f *fakeHosting) ListServers(context.Context) ([]string, error) {
	return f.names, nil
}

func (f *fakeHosting) ServerDetail(_ context.Context, name string) (domain.ServerDetail, error) {
	if err := f.detailErrs[name]; err != nil {
		return domain.ServerDetail{}, err
	}
	return f.details[name], nil
}

func (f *fakeHosting) ServerIPs(_ context.Context, name string) ([]string, error) {
	if err := f.blockErrs[name]; err != nil {
		return nil, err
	}
	return f.blocks[name], nil
}

type fakeChat struct{ posted [][2]string }

func (f *fakeChat) PostMessage(_ context.Context, channel, text string) (string, string, error) {
	f.posted = append(f.posted, [2]string{channel, text})
	return channel, "1.2", nil
}

func newFixture(static domain.StaticIPs) (*Service, *fakeHosting, *fakeChat) {
	hosting := &fakeHosting{
		names: []string{"ns1", "ns2", "ns3"},
		details: map[string]domain.ServerDetail{
			"ns1": {Name: "ns1", DisplayName: "Imagify-Worker-01"},
			"ns2": {Name: "ns2", DisplayName: "backup-01"},
			"ns3": {Name: "ns3", DisplayName: "worker-02"},
		},
		blocks: map[string][]string{
			"ns1": {"203.0.113.10", "2001:db8::10"},
			"ns3": {"203.0.113.30"},
		},
		detailErrs: map[string]error{},
		blockErrs:  map[string]error{},
	}
	chat := &fakeChat{}
	return New(hosting, chat, static), hosting, chat
}

func TestWorkerServersFiltersByDisplayName(t *testing.T) {
	svc, _, _ := newFixture(domain.StaticIPs{})

	servers, err := svc.WorkerServers(context.Background())
	require.NoError(t, err)
	require.Len(t, servers, 2, "only hosts whose display name carries the worker tag qualify")
	assert.Equal(t, "ns1", servers[0].Name)
	assert.Equal(t, "Imagify-Worker-01", servers[0].DisplayName)
	assert.Equal(t, "ns3", servers[1].Name)
}

func TestWorkerServersSplitsAddressFamilies(t *testing.T) {
	svc, _, _ := newFixture(domain.StaticIPs{})

	servers, err := svc.WorkerServers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.10"}, servers[0].IPv4)
	assert.Equal(t, []string{"2001:db8::10"}, servers[0].IPv6)
	assert.Equal(t, []string{"203.0.113.30"}, servers[1].IPv4)
	assert.NotNil(t, servers[1].IPv6)
	assert.Empty(t, servers[1].IPv6)
}

func TestWorkerServersSkipsFailedLookups(t *testing.T) {
	svc, hosting, _ := newFixture(domain.StaticIPs{})
	hosting.detailErrs["ns1"] = perr.Deliveryf("detail unavailable")
	hosting.blockErrs["ns3"] = perr.Deliveryf("ips unavailable")

	servers, err := svc.WorkerServers(context.Background())
	require.NoError(t, err, "one broken host must not sink the whole answer")
	assert.Empty(t, servers)
}

func TestIPv4ListStaticAddressesComeFirst(t *testing.T) {
	svc, _, _ := newFixture(domain.StaticIPs{IPv4: []string{"198.51.100.1"}})

	text, err := svc.IPv4List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.1\n203.0.113.10\n203.0.113.30\n", text)
}

func TestIPv6ListStaticAddressesComeFirst(t *testing.T) {
	svc, _, _ := newFixture(domain.StaticIPs{IPv6: []string{"2001:db8:f::1"}})

	text, err := svc.IPv6List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2001:db8:f::1\n2001:db8::10\n", text)
}

func TestIPListTextSectionsBothFamilies(t *testing.T) {
	svc, _, _ := newFixture(domain.StaticIPs{
		IPv4: []string{"198.51.100.1"},
		IPv6: []string{"2001:db8:f::1"},
	})

	text, err := svc.IPListText(context.Background())
	require.NoError(t, err)
	assert.Equal(t,
		"IPv4:\n198.51.100.1\n203.0.113.10\n203.0.113.30\n\nIPv6:\n2001:db8:f::1\n2001:db8::10\n",
		text)
}

func TestSendIPListDMsTheRequester(t *testing.T) {
	svc, _, chat := newFixture(domain.StaticIPs{})

	require.NoError(t, svc.SendIPList(context.Background(), "U_sup"))
	require.Len(t, chat.posted, 1)
	assert.Equal(t, "U_sup", chat.posted[0][0])
	assert.Contains(t, chat.posted[0][1], "IPv4:\n")
	assert.Contains(t, chat.posted[0][1], "203.0.113.10\n")
}
