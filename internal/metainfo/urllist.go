package metainfo

import (
	"strings"

	"github.com/zeebo/bencode"
)

// URLList holds the web seed addresses of a torrent.
// The "url-list" key may contain a single string or a list of strings.
type URLList []string

var _ bencode.Unmarshaler = (*URLList)(nil)

func (u *URLList) UnmarshalBencode(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	var l []string
	if b[0] == 'l' {
		if err := bencode.DecodeBytes(b, &l); err != nil {
			return err
		}
	} else {
		var s string
		if err := bencode.DecodeBytes(b, &s); err != nil {
			return err
		}
		l = []string{s}
	}
	ret := l[:0]
	for _, s := range l {
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
			ret = append(ret, s)
		}
	}
	*u = ret
	return nil
}
