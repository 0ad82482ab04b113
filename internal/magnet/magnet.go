// Package magnet parses magnet links.
package magnet

import (
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cenkalti/rainview/torrent"
	"github.com/multiformats/go-multihash"
)

var errNotMagnet = errors.New("not a magnet link")

// Magnet link contains the information to download torrent metadata from network.
type Magnet struct {
	InfoHash torrent.InfoHash
	Name     string
	Trackers [][]string
	Peers    []string
}

// IsMagnet reports whether s looks like a magnet link.
func IsMagnet(s string) bool {
	return strings.HasPrefix(s, "magnet:")
}

// New parses the string and returns new Magnet.
func New(s string) (*Magnet, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "magnet" {
		return nil, errNotMagnet
	}
	params := u.Query()

	var m Magnet
	xt := params.Get("xt")
	if xt == "" {
		return nil, errors.New("missing xt param")
	}
	m.InfoHash, err = parseExactTopic(xt)
	if err != nil {
		return nil, err
	}
	m.Name = params.Get("dn")
	m.Trackers = parseTrackers(params)
	m.Peers = params["x.pe"]
	return &m, nil
}

type trackerTier struct {
	trackers []string
	index    int
}

// parseTrackers puts each "tr" param into its own tier, before the tiers given with "tr.<n>" params.
func parseTrackers(params url.Values) [][]string {
	var tiers []trackerTier
	for key, values := range params {
		if key == "tr" {
			for i, tr := range values {
				tiers = append(tiers, trackerTier{trackers: []string{tr}, index: i - len(values)})
			}
		} else if strings.HasPrefix(key, "tr.") {
			index, err := strconv.Atoi(key[3:])
			if err == nil && index >= 0 {
				tiers = append(tiers, trackerTier{trackers: values, index: index})
			}
		}
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].index < tiers[j].index })
	ret := make([][]string, len(tiers))
	for i, ti := range tiers {
		ret[i] = ti.trackers
	}
	return ret
}

func (m *Magnet) String() string {
	var b strings.Builder
	b.WriteString("magnet:?xt=urn:btih:")
	b.WriteString(m.InfoHash.String())
	if m.Name != "" {
		b.WriteString("&dn=")
		b.WriteString(url.QueryEscape(m.Name))
	}
	for i, ti := range m.Trackers {
		if len(ti) == 1 {
			b.WriteString("&tr=")
			b.WriteString(url.QueryEscape(ti[0]))
			continue
		}
		for _, t := range ti {
			fmt.Fprintf(&b, "&tr.%d=%s", i, url.QueryEscape(t))
		}
	}
	for _, p := range m.Peers {
		b.WriteString("&x.pe=")
		b.WriteString(p)
	}
	return b.String()
}

// parseExactTopic accepts "urn:btih:" followed by a 40 character hex or 32 character base32 info hash,
// or "urn:btmh:" followed by a hex encoded SHA-1 multihash.
func parseExactTopic(xt string) (torrent.InfoHash, error) {
	var ih torrent.InfoHash
	var b []byte
	var err error
	switch {
	case strings.HasPrefix(xt, "urn:btih:"):
		xt = xt[9:]
		switch len(xt) {
		case 40:
			b, err = hex.DecodeString(xt)
		case 32:
			b, err = base32.StdEncoding.DecodeString(strings.ToUpper(xt))
		default:
			return ih, errors.New("info hash must be 32 or 40 characters")
		}
		if err != nil {
			return ih, err
		}
	case strings.HasPrefix(xt, "urn:btmh:"):
		mh, err := multihash.FromHexString(xt[9:])
		if err != nil {
			return ih, err
		}
		dmh, err := multihash.Decode(mh)
		if err != nil {
			return ih, err
		}
		if dmh.Code != multihash.SHA1 {
			return ih, fmt.Errorf("unsupported multihash type: %s", dmh.Name)
		}
		b = dmh.Digest
	default:
		return ih, errors.New("invalid xt param: must start with \"urn:btih:\" or \"urn:btmh:\"")
	}
	if len(b) != len(ih) {
		return ih, errors.New("invalid info hash length")
	}
	copy(ih[:], b)
	return ih, nil
}
