package wire

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
)

// Magic identifies the logical network a message belongs to. It is written
// little-endian as the first four bytes of every envelope.
type Magic uint32

// Bytes returns the wire form of the magic value.
func (m Magic) Bytes() [4]byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(m))
	return b
}

func (m Magic) String() string {
	if n, ok := NetworkByMagic(m); ok {
		return n.Name
	}
	return fmt.Sprintf("Magic(%#08x)", uint32(m))
}

// Network bundles the parameters a node needs to find and talk to peers of
// one chain.
type Network struct {
	Name        string
	Magic       Magic
	DefaultPort uint16
	Seeds       []string
}

var (
	MainNet = networkFromParams("mainnet", &chaincfg.MainNetParams)
	TestNet = networkFromParams("testnet", &chaincfg.TestNet3Params)
	RegTest = networkFromParams("regtest", &chaincfg.RegressionNetParams)
)

var knownNetworks = []Network{MainNet, TestNet, RegTest}

func networkFromParams(name string, params *chaincfg.Params) Network {
	port, err := strconv.ParseUint(params.DefaultPort, 10, 16)
	if err != nil {
		panic(fmt.Sprintf("wire: bad default port %q for %s", params.DefaultPort, name))
	}
	seeds := make([]string, 0, len(params.DNSSeeds))
	for _, seed := range params.DNSSeeds {
		seeds = append(seeds, seed.Host)
	}
	return Network{
		Name:        name,
		Magic:       Magic(params.Net),
		DefaultPort: uint16(port),
		Seeds:       seeds,
	}
}

// NetworkByName looks up a preset by name. "testnet3" and "regression" are
// accepted as aliases.
func NetworkByName(name string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mainnet", "main", "":
		return MainNet, nil
	case "testnet", "testnet3", "test":
		return TestNet, nil
	case "regtest", "regression":
		return RegTest, nil
	}
	return Network{}, errors.Errorf("unknown network %q", name)
}

// NetworkByMagic returns the preset that uses the given magic.
func NetworkByMagic(m Magic) (Network, bool) {
	for _, n := range knownNetworks {
		if n.Magic == m {
			return n, true
		}
	}
	return Network{}, false
}
