package wire

import (
	"fmt"
	"strings"
)

// ServiceFlag is the capability bitmask advertised in version messages.
type ServiceFlag uint64

const (
	// SFNodeNetwork: full node that can serve full blocks.
	SFNodeNetwork ServiceFlag = 1 << iota
	// SFNodeGetUTXO: answers getutxo requests.
	SFNodeGetUTXO
	// SFNodeBloom: accepts bloom-filtered connections.
	SFNodeBloom
	// SFNodeWitness: serves blocks and transactions with witness data.
	SFNodeWitness
	// SFNodeXthin: supports Xtreme Thinblocks.
	SFNodeXthin

	// SFNodeNetworkLimited: like SFNodeNetwork but only the last 288 blocks.
	SFNodeNetworkLimited ServiceFlag = 1 << 10
)

var serviceFlagNames = []struct {
	flag ServiceFlag
	name string
}{
	{SFNodeNetwork, "SFNodeNetwork"},
	{SFNodeGetUTXO, "SFNodeGetUTXO"},
	{SFNodeBloom, "SFNodeBloom"},
	{SFNodeWitness, "SFNodeWitness"},
	{SFNodeXthin, "SFNodeXthin"},
	{SFNodeNetworkLimited, "SFNodeNetworkLimited"},
}

// String renders the known flags joined by '|', followed by any unknown
// bits in hex.
func (f ServiceFlag) String() string {
	if f == 0 {
		return "0x0"
	}
	var names []string
	for _, sf := range serviceFlagNames {
		if f&sf.flag == sf.flag {
			names = append(names, sf.name)
			f &^= sf.flag
		}
	}
	if f != 0 {
		names = append(names, fmt.Sprintf("%#x", uint64(f)))
	}
	return strings.Join(names, "|")
}

// Has reports whether every bit of other is set in f.
func (f ServiceFlag) Has(other ServiceFlag) bool {
	return f&other == other
}
