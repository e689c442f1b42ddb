package netident

import "net/netip"

// localProxySet is a binary prefix trie of addresses treated as local
// reverse proxies.
type localProxySet struct {
	ipv4Root *prefixTrieNode
	ipv6Root *prefixTrieNode
}

type prefixTrieNode struct {
	children [2]*prefixTrieNode
	terminal bool
}

func buildLocalProxySet(prefixes []netip.Prefix) localProxySet {
	set := localProxySet{}

	for _, prefix := range prefixes {
		if !prefix.IsValid() {
			continue
		}

		prefix = prefix.Masked()
		addr := normalizeIP(prefix.Addr())
		bits := prefix.Bits()
		if prefix.Addr().Is4In6() {
			bits = max(bits-96, 0)
		}

		if addr.Is4() {
			if set.ipv4Root == nil {
				set.ipv4Root = &prefixTrieNode{}
			}

			b := addr.As4()
			insertPrefix(set.ipv4Root, b[:], bits)
			continue
		}

		if set.ipv6Root == nil {
			set.ipv6Root = &prefixTrieNode{}
		}

		b := addr.As16()
		insertPrefix(set.ipv6Root, b[:], bits)
	}

	return set
}

func insertPrefix(root *prefixTrieNode, addr []byte, bits int) {
	node := root
	for bitIndex := range bits {
		bit := addrBit(addr, bitIndex)
		child := node.children[bit]
		if child == nil {
			child = &prefixTrieNode{}
			node.children[bit] = child
		}
		node = child
	}

	node.terminal = true
}

func (s localProxySet) contains(ip netip.Addr) bool {
	if !ip.IsValid() {
		return false
	}

	ip = normalizeIP(ip)
	if ip.Is4() {
		b := ip.As4()
		return trieContains(s.ipv4Root, b[:])
	}

	b := ip.As16()
	return trieContains(s.ipv6Root, b[:])
}

func trieContains(root *prefixTrieNode, addr []byte) bool {
	node := root
	if node == nil {
		return false
	}

	if node.terminal {
		return true
	}

	for bitIndex := range len(addr) * 8 {
		node = node.children[addrBit(addr, bitIndex)]
		if node == nil {
			return false
		}
		if node.terminal {
			return true
		}
	}

	return false
}

func addrBit(addr []byte, bitIndex int) int {
	byteIndex := bitIndex / 8
	shift := uint(7 - (bitIndex % 8))
	return int((addr[byteIndex] >> shift) & 1)
}
