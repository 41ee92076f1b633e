// Package uri builds connection descriptors for the supported tunneling
// protocol variants. Building is a pure function of the protocol
// selection, the current credential set, and the canonical host of the
// deployed service: identical inputs always produce byte-identical
// descriptors.
package uri

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skylink-net/skylinkctl/internal/credentials"
)

// Protocol identifies a tunneling protocol variant. The selection is
// made once per deployment and is immutable for the process lifetime.
type Protocol string

const (
	// ProtocolTrojan is password-over-websocket.
	ProtocolTrojan Protocol = "trojan"

	// ProtocolVLESS is identifier-over-websocket.
	ProtocolVLESS Protocol = "vless"

	// ProtocolVLESSGRPC is identifier-over-gRPC-stream.
	ProtocolVLESSGRPC Protocol = "vless-grpc"

	// ProtocolVMess is identifier-over-websocket with encoded metadata.
	ProtocolVMess Protocol = "vmess"
)

// Rendezvous endpoint shared by every descriptor. Clients connect to the
// fixed front host; the canonical host rides along as the HTTP Host/SNI
// so the edge can route to the deployed service.
const (
	RendezvousHost = "vpn.googleapis.com"
	RendezvousPort = 443

	// ChannelPath is the websocket upgrade path served by the tunnel image.
	ChannelPath = "/skylinkvpnchannel"

	// GRPCServiceName is the stream service name for the gRPC variant.
	GRPCServiceName = "skylinkvpnchannel"
)

// encodedChannelPath is ChannelPath with the slash percent-encoded, as
// descriptor query strings carry it.
const encodedChannelPath = "%2Fskylinkvpnchannel"

// Display labels carried in the descriptor fragment.
const (
	labelTrojan    = "SkyLink-Trojan"
	labelVLESS     = "SkyLink-VLESS"
	labelVLESSGRPC = "SkyLink-gRPC"
	labelVMess     = "SkyLink-VMess"
)

// AllProtocols returns the supported protocol selections.
func AllProtocols() []Protocol {
	return []Protocol{ProtocolTrojan, ProtocolVLESS, ProtocolVLESSGRPC, ProtocolVMess}
}

// ParseProtocol validates a protocol name from configuration or flags.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(strings.ToLower(strings.TrimSpace(s))) {
	case ProtocolTrojan:
		return ProtocolTrojan, nil
	case ProtocolVLESS:
		return ProtocolVLESS, nil
	case ProtocolVLESSGRPC:
		return ProtocolVLESSGRPC, nil
	case ProtocolVMess:
		return ProtocolVMess, nil
	}
	return "", fmt.Errorf("unsupported protocol '%s' (supported: trojan, vless, vless-grpc, vmess)", s)
}

// Label returns the display label embedded in descriptors for p.
func (p Protocol) Label() string {
	switch p {
	case ProtocolTrojan:
		return labelTrojan
	case ProtocolVLESS:
		return labelVLESS
	case ProtocolVLESSGRPC:
		return labelVLESSGRPC
	case ProtocolVMess:
		return labelVMess
	}
	return ""
}

// Credential returns the credential value p consumes from the set.
func (p Protocol) Credential(set credentials.Set) string {
	switch p {
	case ProtocolTrojan:
		return set.Password
	case ProtocolVLESS:
		return set.VLESSID
	case ProtocolVLESSGRPC:
		return set.GRPCID
	case ProtocolVMess:
		return set.VMessID
	}
	return ""
}

// vmessRecord is the structured metadata serialized into the encoded
// VMess descriptor. Field values other than the identity and hosts are
// fixed by the client contract.
type vmessRecord struct {
	Version string `json:"v"`
	Label   string `json:"ps"`
	Address string `json:"add"`
	Port    string `json:"port"`
	ID      string `json:"id"`
	AlterID string `json:"aid"`
	Cipher  string `json:"scy"`
	Network string `json:"net"`
	Framing string `json:"type"`
	Host    string `json:"host"`
	Path    string `json:"path"`
	TLS     string `json:"tls"`
	SNI     string `json:"sni"`
	ALPN    string `json:"alpn"`
	FP      string `json:"fp"`
}

// Build produces the connection descriptor for the given protocol,
// credential set, and canonical host. An unrecognized protocol is an
// error: the upstream enumeration is fixed, so reaching it means a bug.
func Build(p Protocol, set credentials.Set, canonicalHost string) (string, error) {
	if canonicalHost == "" {
		return "", fmt.Errorf("canonical host is empty")
	}

	switch p {
	case ProtocolTrojan:
		return buildWebsocket("trojan", set.Password, canonicalHost, false, labelTrojan), nil
	case ProtocolVLESS:
		return buildWebsocket("vless", set.VLESSID, canonicalHost, true, labelVLESS), nil
	case ProtocolVLESSGRPC:
		return buildGRPC(set.GRPCID, canonicalHost), nil
	case ProtocolVMess:
		return buildVMess(set.VMessID, canonicalHost)
	}
	return "", fmt.Errorf("unsupported protocol '%s'", p)
}

// buildWebsocket renders the websocket descriptor shape shared by the
// trojan and vless variants. The query string is assembled by hand in a
// fixed order; url.Values would reorder keys and break byte stability.
func buildWebsocket(scheme, credential, canonicalHost string, withEncryption bool, label string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s://%s@%s:%d", scheme, credential, RendezvousHost, RendezvousPort)
	fmt.Fprintf(&b, "?path=%s&security=tls", encodedChannelPath)
	if withEncryption {
		b.WriteString("&encryption=none")
	}
	fmt.Fprintf(&b, "&host=%s&type=ws#%s", canonicalHost, label)
	return b.String()
}

// buildGRPC renders the gRPC stream descriptor. It drops the websocket
// path/host fields and identifies the stream by service name and SNI.
func buildGRPC(credential, canonicalHost string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "vless://%s@%s:%d", credential, RendezvousHost, RendezvousPort)
	b.WriteString("?mode=gun&security=tls&encryption=none&type=grpc")
	fmt.Fprintf(&b, "&serviceName=%s&sni=%s#%s", GRPCServiceName, canonicalHost, labelVLESSGRPC)
	return b.String()
}

// buildVMess serializes the structured record and wraps it in base64.
func buildVMess(credential, canonicalHost string) (string, error) {
	record := vmessRecord{
		Version: "2",
		Label:   labelVMess,
		Address: RendezvousHost,
		Port:    fmt.Sprintf("%d", RendezvousPort),
		ID:      credential,
		AlterID: "0",
		Cipher:  "zero",
		Network: "ws",
		Framing: "none",
		Host:    canonicalHost,
		Path:    ChannelPath,
		TLS:     "tls",
		SNI:     canonicalHost,
		ALPN:    "http/1.1",
		FP:      "randomized",
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vmess record: %w", err)
	}

	return "vmess://" + base64.StdEncoding.EncodeToString(payload), nil
}
