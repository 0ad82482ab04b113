// Package metainfo reads torrent files for display before they are added to a session.
package metainfo

import (
	"crypto/sha1" // nolint: gosec
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/rainview/torrent"
	"github.com/zeebo/bencode"
)

var (
	errNoInfo           = errors.New("no info dict in torrent file")
	errInvalidPieceData = errors.New("invalid piece data")
)

// MetaInfo is the summary of a torrent file.
type MetaInfo struct {
	Name         string
	InfoHash     torrent.InfoHash
	Private      bool
	PieceLength  uint32
	NumPieces    uint32
	TotalLength  int64
	Files        []File
	Trackers     [][]string
	WebSeeds     []string
	Comment      string
	CreatedBy    string
	CreationDate time.Time
}

// File in torrent. Path is relative to the torrent's directory.
type File struct {
	Path   string
	Length int64
}

type fileDict struct {
	Length int64    `bencode:"length"`
	Path   []string `bencode:"path"`
}

type infoDict struct {
	PieceLength uint32             `bencode:"piece length"`
	Pieces      []byte             `bencode:"pieces"`
	Private     bencode.RawMessage `bencode:"private"`
	Name        string             `bencode:"name"`
	Length      int64              `bencode:"length"`
	Files       []fileDict         `bencode:"files"`
}

// Parse reads a bencoded torrent file from r.
func Parse(r io.Reader) (*MetaInfo, error) {
	var t struct {
		Info         bencode.RawMessage `bencode:"info"`
		Announce     string             `bencode:"announce"`
		AnnounceList [][]string         `bencode:"announce-list"`
		URLList      URLList            `bencode:"url-list"`
		Comment      string             `bencode:"comment"`
		CreatedBy    string             `bencode:"created by"`
		CreationDate int64              `bencode:"creation date"`
	}
	err := bencode.NewDecoder(r).Decode(&t)
	if err != nil {
		return nil, err
	}
	if len(t.Info) == 0 {
		return nil, errNoInfo
	}
	mi, err := parseInfo(t.Info)
	if err != nil {
		return nil, err
	}
	for _, tier := range t.AnnounceList {
		var ti []string
		for _, tr := range tier {
			if isTrackerSupported(tr) {
				ti = append(ti, tr)
			}
		}
		if len(ti) > 0 {
			mi.Trackers = append(mi.Trackers, ti)
		}
	}
	if len(mi.Trackers) == 0 && isTrackerSupported(t.Announce) {
		mi.Trackers = [][]string{{t.Announce}}
	}
	mi.WebSeeds = t.URLList
	mi.Comment = t.Comment
	mi.CreatedBy = t.CreatedBy
	if t.CreationDate > 0 {
		mi.CreationDate = time.Unix(t.CreationDate, 0).UTC()
	}
	return mi, nil
}

func parseInfo(b []byte) (*MetaInfo, error) {
	var i infoDict
	if err := bencode.DecodeBytes(b, &i); err != nil {
		return nil, err
	}
	if i.PieceLength == 0 || len(i.Pieces)%sha1.Size != 0 {
		return nil, errInvalidPieceData
	}
	mi := &MetaInfo{
		Name:        i.Name,
		PieceLength: i.PieceLength,
		NumPieces:   uint32(len(i.Pieces) / sha1.Size),
		Private:     isPrivate(i.Private),
	}
	if len(i.Files) == 0 {
		mi.Files = []File{{Path: i.Name, Length: i.Length}}
	} else {
		for _, f := range i.Files {
			for _, p := range f.Path {
				if strings.TrimSpace(p) == ".." {
					return nil, fmt.Errorf("invalid file name: %q", filepath.Join(f.Path...))
				}
			}
			mi.Files = append(mi.Files, File{
				Path:   filepath.Join(append([]string{i.Name}, f.Path...)...),
				Length: f.Length,
			})
		}
	}
	for _, f := range mi.Files {
		mi.TotalLength += f.Length
	}
	// Last piece may be shorter, never longer.
	delta := int64(mi.PieceLength)*int64(mi.NumPieces) - mi.TotalLength
	if delta >= int64(mi.PieceLength) || delta < 0 {
		return nil, errInvalidPieceData
	}
	mi.InfoHash = sha1.Sum(b) // nolint: gosec
	return mi, nil
}

// isPrivate accepts both integer and string forms of the private flag.
func isPrivate(raw bencode.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var intVal int64
	if err := bencode.DecodeBytes(raw, &intVal); err == nil {
		return intVal == 1
	}
	var stringVal string
	if err := bencode.DecodeBytes(raw, &stringVal); err == nil {
		return stringVal == "1"
	}
	return false
}

func isTrackerSupported(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "udp://")
}
